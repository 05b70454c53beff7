// Package pos holds the cashier-side checkout session: product search, the
// cart, change arithmetic, and the commit paths against the inventory
// service. All session state lives in the Session struct; nothing here is
// persisted and a session dies with the process.
package pos

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/VNGato/sistema-estoque/internal/product"
)

var (
	ErrNoSelection       = errors.New("no product selected")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientStock = errors.New("quantity exceeds available stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrConfirmRequired   = errors.New("amount paid is below total, confirmation required")
	ErrCommitInFlight    = errors.New("a commit is already in progress")
	ErrLineOutOfRange    = errors.New("no such cart line")
)

type State int

const (
	StateIdle State = iota
	StateSearching
	StateSelected
)

// CartLine snapshots the product at add time; the subtotal is fixed then.
// Nothing is reserved until commit.
type CartLine struct {
	Product  product.Product
	Quantity int
	Subtotal decimal.Decimal
}

// Inventory is the read side the session needs from the service.
type Inventory interface {
	ListProducts(ctx context.Context) ([]product.Product, error)
}

type Session struct {
	inv       Inventory
	committer Committer
	logger    zerolog.Logger

	state    State
	products []product.Product
	matches  []product.Product
	selected *product.Product
	cart     []CartLine

	committing atomic.Bool
}

func NewSession(inv Inventory, committer Committer, logger zerolog.Logger) *Session {
	return &Session{inv: inv, committer: committer, logger: logger, state: StateIdle}
}

// Refresh reloads the cached product list from the service. Stock checks in
// AddToCart run against this snapshot, which may be stale; commit is where
// the store has the last word.
func (s *Session) Refresh(ctx context.Context) error {
	products, err := s.inv.ListProducts(ctx)
	if err != nil {
		return err
	}
	s.products = products
	return nil
}

func (s *Session) State() State                { return s.state }
func (s *Session) Products() []product.Product { return s.products }
func (s *Session) Matches() []product.Product  { return s.matches }
func (s *Session) Selected() *product.Product  { return s.selected }
func (s *Session) Cart() []CartLine            { return s.cart }

// Search filters the cached list by case-insensitive substring over name and
// sku. An exact sku match auto-selects the product.
func (s *Session) Search(term string) []product.Product {
	s.matches = nil
	if term == "" {
		if s.state == StateSearching {
			s.state = StateIdle
		}
		return nil
	}

	needle := strings.ToLower(term)
	var exact *product.Product
	for i := range s.products {
		p := s.products[i]
		name := strings.ToLower(p.Name)
		sku := strings.ToLower(p.SKU)
		if !strings.Contains(name, needle) && !strings.Contains(sku, needle) {
			continue
		}
		s.matches = append(s.matches, p)
		if sku == needle && exact == nil {
			exact = &p
		}
	}

	if exact != nil {
		s.Select(*exact)
		return nil
	}
	s.state = StateSearching
	return s.matches
}

func (s *Session) Select(p product.Product) {
	s.selected = &p
	s.matches = nil
	s.state = StateSelected
}

func (s *Session) ClearSelection() {
	s.selected = nil
	s.state = StateIdle
}

// AddToCart appends a line for the selected product and returns to idle.
// The quantity must be positive and within the snapshot's stock.
func (s *Session) AddToCart(quantity int) error {
	if s.selected == nil {
		return ErrNoSelection
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > s.selected.Stock {
		return ErrInsufficientStock
	}

	p := *s.selected
	s.cart = append(s.cart, CartLine{
		Product:  p,
		Quantity: quantity,
		Subtotal: p.SalePrice.Mul(decimal.NewFromInt(int64(quantity))),
	})
	s.ClearSelection()
	return nil
}

// RemoveLine drops a cart line. Always allowed: nothing was reserved.
func (s *Session) RemoveLine(i int) error {
	if i < 0 || i >= len(s.cart) {
		return ErrLineOutOfRange
	}
	s.cart = append(s.cart[:i], s.cart[i+1:]...)
	return nil
}

func (s *Session) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.cart {
		total = total.Add(line.Subtotal)
	}
	return total
}

// Change is amountPaid minus the cart total; negative means the customer
// still owes money.
func (s *Session) Change(amountPaid decimal.Decimal) decimal.Decimal {
	return amountPaid.Sub(s.Total())
}

// Receipt summarises a committed sale for display.
type Receipt struct {
	Total      decimal.Decimal
	AmountPaid decimal.Decimal
	Change     decimal.Decimal
}

// Commit finalizes the cart through the configured Committer. Negative
// change is a soft warning: the caller must pass confirmed=true to proceed.
// Only one commit may be in flight at a time. On success the cart is cleared
// and the product list reloaded.
func (s *Session) Commit(ctx context.Context, amountPaid decimal.Decimal, confirmed bool) (*Receipt, error) {
	if len(s.cart) == 0 {
		return nil, ErrEmptyCart
	}

	total := s.Total()
	change := amountPaid.Sub(total)
	if change.IsNegative() && !confirmed {
		return nil, ErrConfirmRequired
	}

	if !s.committing.CompareAndSwap(false, true) {
		return nil, ErrCommitInFlight
	}
	defer s.committing.Store(false)

	if err := s.committer.Commit(ctx, s.cart, amountPaid); err != nil {
		return nil, err
	}

	s.cart = nil
	s.ClearSelection()
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("reload products after commit")
	}

	return &Receipt{Total: total, AmountPaid: amountPaid, Change: change}, nil
}
