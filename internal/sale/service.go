package sale

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingSaleID = errors.New("saleID is required")
	ErrEmptyCart     = errors.New("sale has no lines")
	ErrInvalidLine   = errors.New("sale line is invalid")
)

// Service orchestrates sale commits on top of the Repository.
// It adds basic idempotency keyed by saleID so a retried commit does not
// decrement stock twice.
type Service struct {
	repo Repository

	mu        sync.Mutex
	completed map[string]CommitResult
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:      repo,
		completed: make(map[string]CommitResult),
	}
}

func (s *Service) Commit(ctx context.Context, saleID string, lines []Line, amountPaid decimal.Decimal) (CommitResult, error) {
	if saleID == "" {
		return CommitResult{}, ErrMissingSaleID
	}
	if len(lines) == 0 {
		return CommitResult{}, ErrEmptyCart
	}
	for _, ln := range lines {
		if ln.ProductID <= 0 || ln.Quantity <= 0 {
			return CommitResult{}, ErrInvalidLine
		}
	}

	s.mu.Lock()
	if res, ok := s.completed[saleID]; ok {
		s.mu.Unlock()
		return res, nil
	}
	s.mu.Unlock()

	res, err := s.repo.Commit(ctx, saleID, lines, amountPaid)
	if err != nil {
		return CommitResult{}, err
	}

	// Only finished sales are memoized; an insufficient-stock outcome may
	// succeed on retry once the product is restocked.
	if res.Sale != nil {
		s.mu.Lock()
		s.completed[saleID] = res
		s.mu.Unlock()
	}

	return res, nil
}
