package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/models"
)

// MemStore is an in-memory Store with the same observable semantics as the
// Postgres-backed one. RunInTx holds a single mutex for the whole transaction
// and rolls back by snapshot, which subsumes the per-vendor row lock: every
// balance-read-then-write sequence is serialized. Used by hermetic tests and
// as a scratch backend; it is not durable.
type MemStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	vendors      map[uuid.UUID]models.Vendor
	accounts     map[uuid.UUID]time.Time
	transactions map[uuid.UUID]models.Transaction
	withdrawals  map[uuid.UUID]models.WithdrawalRequest
	audit        []AuditEntry
	clock        time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{state: &memState{
		vendors:      make(map[uuid.UUID]models.Vendor),
		accounts:     make(map[uuid.UUID]time.Time),
		transactions: make(map[uuid.UUID]models.Transaction),
		withdrawals:  make(map[uuid.UUID]models.WithdrawalRequest),
		clock:        time.Now().UTC(),
	}}
}

// SeedVendor registers a vendor in the directory mirror.
func (s *MemStore) SeedVendor(v models.Vendor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.state.now()
	}
	s.state.vendors[v.ID] = v
}

// AuditEntries returns a copy of the audit trail.
func (s *MemStore) AuditEntries() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEntry, len(s.state.audit))
	copy(out, s.state.audit)
	return out
}

// Querier returns a non-transactional query view.
func (s *MemStore) Querier() Querier {
	return &memQueries{s: s}
}

// RunInTx serializes the whole function under the store mutex and restores
// the previous state if fn fails.
func (s *MemStore) RunInTx(ctx context.Context, fn func(q Querier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&memQueries{s: s, inTx: true}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// now hands out strictly increasing timestamps so created_at ordering is
// total, matching the DESC listing contract.
func (st *memState) now() time.Time {
	st.clock = st.clock.Add(time.Microsecond)
	return st.clock
}

func (st *memState) clone() *memState {
	next := &memState{
		vendors:      make(map[uuid.UUID]models.Vendor, len(st.vendors)),
		accounts:     make(map[uuid.UUID]time.Time, len(st.accounts)),
		transactions: make(map[uuid.UUID]models.Transaction, len(st.transactions)),
		withdrawals:  make(map[uuid.UUID]models.WithdrawalRequest, len(st.withdrawals)),
		audit:        make([]AuditEntry, len(st.audit)),
		clock:        st.clock,
	}
	for k, v := range st.vendors {
		next.vendors[k] = v
	}
	for k, v := range st.accounts {
		next.accounts[k] = v
	}
	for k, v := range st.transactions {
		next.transactions[k] = v
	}
	for k, v := range st.withdrawals {
		next.withdrawals[k] = v
	}
	copy(next.audit, st.audit)
	return next
}

type memQueries struct {
	s    *MemStore
	inTx bool
}

var _ Querier = (*memQueries)(nil)

func (q *memQueries) do(fn func(st *memState) error) error {
	if !q.inTx {
		q.s.mu.Lock()
		defer q.s.mu.Unlock()
	}
	return fn(q.s.state)
}

func (q *memQueries) VendorExists(ctx context.Context, vendorID uuid.UUID) (bool, error) {
	var exists bool
	err := q.do(func(st *memState) error {
		_, exists = st.vendors[vendorID]
		return nil
	})
	return exists, err
}

func (q *memQueries) ListVendorAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := q.do(func(st *memState) error {
		for id := range st.accounts {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			return st.accounts[ids[i]].Before(st.accounts[ids[j]])
		})
		return nil
	})
	return ids, err
}

func (q *memQueries) EnsureVendorAccount(ctx context.Context, vendorID uuid.UUID) error {
	return q.do(func(st *memState) error {
		if _, ok := st.accounts[vendorID]; !ok {
			st.accounts[vendorID] = st.now()
		}
		return nil
	})
}

func (q *memQueries) LockVendorAccount(ctx context.Context, vendorID uuid.UUID) error {
	// RunInTx already holds the store mutex; only existence is checked.
	return q.do(func(st *memState) error {
		if _, ok := st.accounts[vendorID]; !ok {
			return domain.ErrVendorNotFound
		}
		return nil
	})
}

func (q *memQueries) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	return q.do(func(st *memState) error {
		now := st.now()
		tx.CreatedAt = now
		tx.UpdatedAt = now
		st.transactions[tx.ID] = *tx
		return nil
	})
}

func (q *memQueries) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var out *models.Transaction
	err := q.do(func(st *memState) error {
		t, ok := st.transactions[id]
		if !ok {
			return domain.ErrTransactionNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (q *memQueries) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return q.GetTransaction(ctx, id)
}

func (q *memQueries) ListTransactions(ctx context.Context, vendorID uuid.UUID, filter TransactionFilter, page Page) ([]models.Transaction, int64, error) {
	var matched []models.Transaction
	err := q.do(func(st *memState) error {
		for _, t := range st.transactions {
			if t.VendorID != vendorID {
				continue
			}
			if filter.Type != nil && t.Type != *filter.Type {
				continue
			}
			if filter.Status != nil && t.Status != *filter.Status {
				continue
			}
			if filter.From != nil && t.CreatedAt.Before(*filter.From) {
				continue
			}
			if filter.To != nil && t.CreatedAt.After(*filter.To) {
				continue
			}
			matched = append(matched, t)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	return paginate(matched, page), total, nil
}

func (q *memQueries) SetTransactionStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	return q.do(func(st *memState) error {
		t, ok := st.transactions[id]
		if !ok {
			return domain.ErrTransactionNotFound
		}
		t.Status = status
		t.UpdatedAt = st.now()
		st.transactions[id] = t
		return nil
	})
}

func (q *memQueries) VendorLedgerTotals(ctx context.Context, vendorID uuid.UUID) (LedgerTotals, error) {
	totals := LedgerTotals{Earnings: decimal.Zero, Withdrawals: decimal.Zero}
	err := q.do(func(st *memState) error {
		for _, t := range st.transactions {
			if t.VendorID != vendorID || t.Status != domain.TxStatusCompleted {
				continue
			}
			if t.Type.IsCredit() {
				totals.Earnings = totals.Earnings.Add(t.Amount)
			} else {
				totals.Withdrawals = totals.Withdrawals.Add(t.Amount)
			}
		}
		return nil
	})
	return totals, err
}

func (q *memQueries) SumReservedWithdrawals(ctx context.Context, vendorID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error) {
	reserved := decimal.Zero
	err := q.do(func(st *memState) error {
		for _, w := range st.withdrawals {
			if w.VendorID != vendorID || !w.Status.Reserves() {
				continue
			}
			if exclude != nil && w.ID == *exclude {
				continue
			}
			reserved = reserved.Add(w.Amount)
		}
		return nil
	})
	return reserved, err
}

func (q *memQueries) InsertWithdrawalRequest(ctx context.Context, req *models.WithdrawalRequest) error {
	return q.do(func(st *memState) error {
		now := st.now()
		req.CreatedAt = now
		req.UpdatedAt = now
		st.withdrawals[req.ID] = *req
		return nil
	})
}

func (q *memQueries) GetWithdrawalRequest(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var out *models.WithdrawalRequest
	err := q.do(func(st *memState) error {
		w, ok := st.withdrawals[id]
		if !ok {
			return domain.ErrWithdrawalNotFound
		}
		out = &w
		return nil
	})
	return out, err
}

func (q *memQueries) GetWithdrawalRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	return q.GetWithdrawalRequest(ctx, id)
}

func (q *memQueries) ListWithdrawalRequests(ctx context.Context, vendorID uuid.UUID, status *domain.WithdrawalStatus, page Page) ([]models.WithdrawalRequest, int64, error) {
	var matched []models.WithdrawalRequest
	err := q.do(func(st *memState) error {
		for _, w := range st.withdrawals {
			if w.VendorID != vendorID {
				continue
			}
			if status != nil && w.Status != *status {
				continue
			}
			matched = append(matched, w)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	return paginate(matched, page), total, nil
}

func (q *memQueries) UpdateWithdrawalRequest(ctx context.Context, req *models.WithdrawalRequest) error {
	return q.do(func(st *memState) error {
		if _, ok := st.withdrawals[req.ID]; !ok {
			return domain.ErrWithdrawalNotFound
		}
		req.UpdatedAt = st.now()
		st.withdrawals[req.ID] = *req
		return nil
	})
}

func (q *memQueries) InsertAuditLog(ctx context.Context, entry AuditEntry) error {
	return q.do(func(st *memState) error {
		entry.CreatedAt = st.now()
		st.audit = append(st.audit, entry)
		return nil
	})
}

func paginate[T any](items []T, page Page) []T {
	offset := page.Offset()
	if offset >= len(items) {
		return nil
	}
	end := offset + page.Limit()
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}
