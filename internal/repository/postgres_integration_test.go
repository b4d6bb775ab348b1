//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"campus_store/internal/database"
	"campus_store/internal/migrations"
	"campus_store/internal/models"
	"campus_store/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repository/
func openRepositories(t *testing.T) repository.Repositories {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Initialize(url, database.Options{MaxOpenConns: 20, MaxIdleConns: 5}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrations.RunMigrations(db, zap.NewNop()))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return repository.NewGormRepositories(db)
}

func createProduct(t *testing.T, repos repository.Repositories, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:      fmt.Sprintf("Lanyard %d", time.Now().UnixNano()),
		Price:     decimal.NewFromInt(50),
		CostPrice: decimal.NewFromInt(20),
		Stock:     stock,
		IsActive:  true,
	}
	require.NoError(t, repos.Products.Create(context.Background(), p))
	return p
}

func TestLastUnitGoesToExactlyOneTransaction(t *testing.T) {
	repos := openRepositories(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	product := createProduct(t, repos, 1)
	target := repository.StockTarget{ProductID: product.ID}

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = repos.UnitOfWork.RunInTx(ctx, func(ctx context.Context) error {
				_, err := repos.Stock.Decrement(ctx, target, 1)
				return err
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		var stockErr *repository.InsufficientStockError
		require.True(t, errors.As(err, &stockErr), "unexpected error: %v", err)
		assert.Equal(t, 0, stockErr.Available)
	}
	assert.Equal(t, 1, won)

	current, err := repos.Stock.Current(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, 0, current)
}

func TestCounterIssuesDistinctValuesUnderConcurrency(t *testing.T) {
	repos := openRepositories(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	key := fmt.Sprintf("T%d", time.Now().UnixNano())

	const workers = 16
	values := make([]int64, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := repos.Counters.Next(ctx, key)
			assert.NoError(t, err)
			values[i] = v
		}(i)
	}
	wg.Wait()

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		assert.Equal(t, int64(i+1), v)
	}
}

func TestRolledBackTransactionReleasesStockAndNumber(t *testing.T) {
	repos := openRepositories(t)
	ctx := context.Background()
	product := createProduct(t, repos, 3)
	target := repository.StockTarget{ProductID: product.ID}
	key := fmt.Sprintf("R%d", time.Now().UnixNano())

	boom := errors.New("boom")
	err := repos.UnitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := repos.Counters.Next(ctx, key); err != nil {
			return err
		}
		if _, err := repos.Stock.Decrement(ctx, target, 3); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	current, err := repos.Stock.Current(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, 3, current)

	next, err := repos.Counters.Next(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}
