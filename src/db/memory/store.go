// Package memory is an in-process implementation of the transaction storage
// contract, used by tests and by the server when no database is configured
// for a quick demo.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"finanzas-server/src/apperr"
	"finanzas-server/src/models"
	"finanzas-server/src/service"

	"github.com/shopspring/decimal"
)

type data struct {
	accounts     map[models.AccountRef]models.Account
	goals        map[string]models.SavingsGoal
	transactions map[string]models.Transaction
}

func (d *data) clone() *data {
	c := &data{
		accounts:     make(map[models.AccountRef]models.Account, len(d.accounts)),
		goals:        make(map[string]models.SavingsGoal, len(d.goals)),
		transactions: make(map[string]models.Transaction, len(d.transactions)),
	}
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.goals {
		c.goals[k] = v
	}
	for k, v := range d.transactions {
		c.transactions[k] = v
	}
	return c
}

// Store serialises units of work behind one mutex. Each unit of work mutates
// a private copy that replaces the live data only when it succeeds.
type Store struct {
	mu   sync.Mutex
	data *data
}

var _ service.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: &data{
		accounts:     map[models.AccountRef]models.Account{},
		goals:        map[string]models.SavingsGoal{},
		transactions: map[string]models.Transaction{},
	}}
}

func (s *Store) PutAccount(a models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.accounts[a.Ref()] = a
}

func (s *Store) PutGoal(g models.SavingsGoal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.goals[g.ID] = g
}

func (s *Store) Account(ref models.AccountRef) (models.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data.accounts[ref]
	return a, ok
}

func (s *Store) Goal(id string) (models.SavingsGoal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.data.goals[id]
	return g, ok
}

func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.transactions)
}

func (s *Store) WithinTx(ctx context.Context, fn func(uow service.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return apperr.Storage("failed to begin transaction", err)
	}
	work := s.data.clone()
	if err := fn(&unitOfWork{d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&unitOfWork{d: s.data}).GetTransaction(ctx, userID, id)
}

func (s *Store) FindTransactionByScope(ctx context.Context, userID, scope string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&unitOfWork{d: s.data}).FindTransactionByScope(ctx, userID, scope)
}

func (s *Store) ListAccounts(ctx context.Context, userID string, kind models.AccountKind) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&unitOfWork{d: s.data}).ListAccounts(ctx, userID, kind)
}

func (s *Store) ListTransactions(_ context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := []models.Transaction{}
	for _, t := range s.data.transactions {
		if t.UserID != userID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.From != nil && t.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && t.Date.After(*filter.To) {
			continue
		}
		txs = append(txs, t)
	}
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	if filter.Limit > 0 && len(txs) > filter.Limit {
		txs = txs[:filter.Limit]
	}
	return txs, nil
}

func (s *Store) TransactionStats(_ context.Context, userID string, since time.Time) (service.TransactionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		stats service.TransactionStats
		total = decimal.Zero
		n     int64
	)
	for _, t := range s.data.transactions {
		if t.UserID != userID {
			continue
		}
		total = total.Add(t.Amount.Abs())
		n++
		if !t.CreatedAt.Before(since) {
			stats.RecentCount++
		}
	}
	if n > 0 {
		stats.AverageAmount = total.Div(decimal.NewFromInt(n))
	}
	return stats, nil
}

func (s *Store) Dashboard(_ context.Context, userID string, from, to time.Time) (*models.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &models.Dashboard{
		From:         from,
		To:           to,
		Totals:       []models.CurrencyTotals{},
		CountsByType: map[models.TransactionType]int{},
		Accounts:     []models.Account{},
		Goals:        []models.SavingsGoal{},
	}
	byCurrency := map[string]*models.CurrencyTotals{}
	for _, t := range s.data.transactions {
		if t.UserID != userID || t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		d.CountsByType[t.Type]++
		ct, ok := byCurrency[t.Currency]
		if !ok {
			ct = &models.CurrencyTotals{Currency: t.Currency}
			byCurrency[t.Currency] = ct
		}
		switch t.Type {
		case models.TypeIncome:
			ct.Income = ct.Income.Add(t.Amount)
		case models.TypeExpense:
			ct.Expense = ct.Expense.Add(t.Amount)
		}
	}
	for _, ct := range byCurrency {
		ct.Net = ct.Income.Sub(ct.Expense)
		d.Totals = append(d.Totals, *ct)
	}
	sort.Slice(d.Totals, func(i, j int) bool { return d.Totals[i].Currency < d.Totals[j].Currency })

	for _, a := range s.data.accounts {
		if a.UserID == userID {
			d.Accounts = append(d.Accounts, a)
		}
	}
	sortAccounts(d.Accounts)
	for _, g := range s.data.goals {
		if g.UserID == userID && g.Status == models.GoalActive {
			d.Goals = append(d.Goals, g)
		}
	}
	sort.Slice(d.Goals, func(i, j int) bool { return d.Goals[i].Name < d.Goals[j].Name })
	return d, nil
}

func sortAccounts(accounts []models.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Kind != accounts[j].Kind {
			return accounts[i].Kind < accounts[j].Kind
		}
		return accounts[i].Name < accounts[j].Name
	})
}
