// Package memory is an in-process implementation of every repository. Transactions
// are serialized and work on a private copy of the state that replaces the committed
// state only on success, so readers outside the transaction never see its writes.
package memory

import (
	"context"
	"sync"
	"time"

	"campus_store/internal/models"
	"campus_store/internal/repository"
)

type txKey struct{}

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   *state
	// work is the running transaction's copy of st; nil when no transaction is open.
	work *state
	now  func() time.Time
}

type state struct {
	seq           map[string]uint
	products      map[uint]models.Product
	variants      map[uint]models.ProductVariant
	carts         map[uint]models.CartItem
	orders        map[uint]models.Order
	items         map[uint]models.OrderItem
	statusLogs    []models.OrderStatusLog
	movements     []models.StockMovement
	ledger        []models.SalesLedgerEntry
	payments      []models.PaymentTransaction
	notifications map[uint]models.Notification
	users         map[uint]models.User
	counters      map[string]int64
}

type Option func(*Store)

// WithClock overrides the time source used for zero-valued timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		st: &state{
			seq:           map[string]uint{},
			products:      map[uint]models.Product{},
			variants:      map[uint]models.ProductVariant{},
			carts:         map[uint]models.CartItem{},
			orders:        map[uint]models.Order{},
			items:         map[uint]models.OrderItem{},
			notifications: map[uint]models.Notification{},
			users:         map[uint]models.User{},
			counters:      map[string]int64{},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		UnitOfWork:    s,
		Products:      &productRepo{s: s},
		Stock:         &stockRepo{s: s},
		Carts:         &cartRepo{s: s},
		Orders:        &orderRepo{s: s},
		OrderItems:    &orderItemRepo{s: s},
		Counters:      &counterRepo{s: s},
		Financial:     &financialRepo{s: s},
		Notifications: &notificationRepo{s: s},
		Users:         &userRepo{s: s},
	}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.work = s.st.clone()
	s.mu.Unlock()

	err := fn(context.WithValue(ctx, txKey{}, true))

	s.mu.Lock()
	if err == nil {
		s.st = s.work
	}
	s.work = nil
	s.mu.Unlock()
	return err
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// view returns the state ctx operates on. Callers hold mu.
func (s *Store) view(ctx context.Context) *state {
	if inTx(ctx) && s.work != nil {
		return s.work
	}
	return s.st
}

// write applies fn under the data lock. Outside a transaction it waits for the
// running one so both never modify the committed state at once.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.view(ctx))
}

// read serves committed data outside a transaction and the transaction's own
// copy inside it.
func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.view(ctx))
}

func (st *state) nextID(table string) uint {
	st.seq[table]++
	return st.seq[table]
}

func (st *state) clone() *state {
	out := &state{
		seq:           cloneMap(st.seq),
		products:      cloneMap(st.products),
		variants:      cloneMap(st.variants),
		carts:         cloneMap(st.carts),
		orders:        cloneMap(st.orders),
		items:         cloneMap(st.items),
		statusLogs:    append([]models.OrderStatusLog(nil), st.statusLogs...),
		movements:     append([]models.StockMovement(nil), st.movements...),
		ledger:        append([]models.SalesLedgerEntry(nil), st.ledger...),
		payments:      append([]models.PaymentTransaction(nil), st.payments...),
		notifications: cloneMap(st.notifications),
		users:         cloneMap(st.users),
		counters:      cloneMap(st.counters),
	}
	return out
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *Store) stamp(t *time.Time) {
	if t.IsZero() {
		*t = s.now()
	}
}
