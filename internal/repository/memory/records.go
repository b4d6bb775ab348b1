package memory

import (
	"context"
	"sort"
	"strings"

	"campus_store/internal/models"
	"campus_store/internal/repository"

	"github.com/shopspring/decimal"
)

type financialRepo struct {
	s *Store
}

func (r *financialRepo) AppendLedgerEntry(ctx context.Context, entry *models.SalesLedgerEntry) error {
	return r.s.write(ctx, func(st *state) error {
		entry.ID = st.nextID("sales_ledger")
		r.s.stamp(&entry.CreatedAt)
		st.ledger = append(st.ledger, *entry)
		return nil
	})
}

func (r *financialRepo) ListLedgerEntries(ctx context.Context, orderID uint) ([]models.SalesLedgerEntry, error) {
	var out []models.SalesLedgerEntry
	err := r.s.read(ctx, func(st *state) error {
		for _, e := range st.ledger {
			if e.OrderID == orderID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func (r *financialRepo) NetSales(ctx context.Context, orderID uint) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.s.read(ctx, func(st *state) error {
		for _, e := range st.ledger {
			if e.OrderID == orderID {
				total = total.Add(e.Amount)
			}
		}
		return nil
	})
	return total, err
}

func (r *financialRepo) CreatePaymentTransaction(ctx context.Context, tx *models.PaymentTransaction) error {
	return r.s.write(ctx, func(st *state) error {
		for _, p := range st.payments {
			if p.Reference == tx.Reference {
				return repository.ErrDuplicate
			}
		}
		tx.ID = st.nextID("payment_transactions")
		r.s.stamp(&tx.CreatedAt)
		st.payments = append(st.payments, *tx)
		return nil
	})
}

func (r *financialRepo) ListPaymentTransactions(ctx context.Context, orderID uint) ([]models.PaymentTransaction, error) {
	var out []models.PaymentTransaction
	err := r.s.read(ctx, func(st *state) error {
		for _, p := range st.payments {
			if p.OrderID == orderID {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

type notificationRepo struct {
	s *Store
}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return r.s.write(ctx, func(st *state) error {
		n.ID = st.nextID("notifications")
		r.s.stamp(&n.CreatedAt)
		st.notifications[n.ID] = *n
		return nil
	})
}

func (r *notificationRepo) ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	return r.list(ctx, limit, func(n models.Notification) bool {
		return n.Audience == models.AudienceUser && n.UserID != nil && *n.UserID == userID
	})
}

func (r *notificationRepo) ListForAdmins(ctx context.Context, limit int) ([]models.Notification, error) {
	return r.list(ctx, limit, func(n models.Notification) bool { return n.Audience == models.AudienceAdmin })
}

func (r *notificationRepo) list(ctx context.Context, limit int, match func(models.Notification) bool) ([]models.Notification, error) {
	var out []models.Notification
	err := r.s.read(ctx, func(st *state) error {
		for _, n := range st.notifications {
			if match(n) {
				out = append(out, n)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, id uint, userID *uint) error {
	return r.s.write(ctx, func(st *state) error {
		n, ok := st.notifications[id]
		if !ok {
			return repository.ErrNotFound
		}
		if userID != nil {
			if n.Audience != models.AudienceUser || n.UserID == nil || *n.UserID != *userID {
				return repository.ErrNotFound
			}
		} else if n.Audience != models.AudienceAdmin {
			return repository.ErrNotFound
		}
		n.IsRead = true
		st.notifications[id] = n
		return nil
	})
}

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	return r.s.write(ctx, func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, user.Email) {
				return repository.ErrDuplicate
			}
			if user.StudentNumber != "" && u.StudentNumber == user.StudentNumber {
				return repository.ErrDuplicate
			}
		}
		user.ID = st.nextID("users")
		r.s.stamp(&user.CreatedAt)
		r.s.stamp(&user.UpdatedAt)
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var out *models.User
	err := r.s.read(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok || u.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.s.read(ctx, func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) && !u.DeletedAt.Valid {
				out = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepo) List(ctx context.Context, role models.UserRole) ([]models.User, error) {
	var out []models.User
	err := r.s.read(ctx, func(st *state) error {
		for _, u := range st.users {
			if u.DeletedAt.Valid || (role != "" && u.Role != role) {
				continue
			}
			out = append(out, u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, err
}
