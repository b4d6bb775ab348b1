package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus_store/internal/repository"
)

const orderNumberDayLayout = "20060102"

// OrderNumberGenerator issues ORD<YYYYMMDD><seq> numbers from a per-day counter.
// Called inside the checkout transaction, a rolled-back checkout releases its number.
type OrderNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

type orderNumberGenerator struct {
	counters repository.CounterRepository
	clock    func() time.Time
	loc      *time.Location
}

func NewOrderNumberGenerator(counters repository.CounterRepository, clock func() time.Time, loc *time.Location) (OrderNumberGenerator, error) {
	if counters == nil {
		return nil, errors.New("order numbers: counter repository is required")
	}
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &orderNumberGenerator{counters: counters, clock: clock, loc: loc}, nil
}

func (g *orderNumberGenerator) Next(ctx context.Context) (string, error) {
	day := g.clock().In(g.loc).Format(orderNumberDayLayout)
	seq, err := g.counters.Next(ctx, day)
	if err != nil {
		return "", fmt.Errorf("next order sequence for %s: %w", day, fromRepository(err))
	}
	return FormatOrderNumber(day, seq), nil
}

func FormatOrderNumber(day string, seq int64) string {
	return fmt.Sprintf("ORD%s%04d", day, seq)
}
