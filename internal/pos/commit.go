package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/VNGato/sistema-estoque/internal/product"
	"github.com/VNGato/sistema-estoque/internal/sale"
)

// Committer turns a cart into applied stock decrements.
type Committer interface {
	Commit(ctx context.Context, lines []CartLine, amountPaid decimal.Decimal) error
}

// StockSeller is the per-line write the legacy committer needs.
type StockSeller interface {
	Sell(ctx context.Context, id int64, amount int) (product.Product, error)
}

const defaultCallTimeout = 5 * time.Second

// LineCommitter replays the legacy POS behavior: one sell call per cart
// line, strictly sequentially, in cart insertion order, each call awaited
// before the next. There is no rollback: a failure mid-commit leaves the
// earlier decrements applied, so it logs exactly how far it got.
type LineCommitter struct {
	inv     StockSeller
	timeout time.Duration
	logger  zerolog.Logger
}

func NewLineCommitter(inv StockSeller, timeout time.Duration, logger zerolog.Logger) *LineCommitter {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &LineCommitter{inv: inv, timeout: timeout, logger: logger}
}

func (c *LineCommitter) Commit(ctx context.Context, lines []CartLine, amountPaid decimal.Decimal) error {
	for i, line := range lines {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		_, err := c.inv.Sell(callCtx, line.Product.ID, line.Quantity)
		cancel()
		if err != nil {
			c.logger.Error().
				Int("committedLines", i).
				Int("totalLines", len(lines)).
				Int64("failedProductId", line.Product.ID).
				Msg("sale commit failed partway; earlier decrements are NOT rolled back")
			return fmt.Errorf("sell line %d (product %d): %w", i, line.Product.ID, err)
		}
	}
	return nil
}

// SalePoster is the one-shot write the transactional committer needs.
type SalePoster interface {
	CommitSale(ctx context.Context, req SaleRequest) (*sale.Sale, error)
}

// TxCommitter posts the whole cart as a single atomic sale: the store
// applies every decrement or none. This is the default.
type TxCommitter struct {
	api SalePoster
}

func NewTxCommitter(api SalePoster) *TxCommitter {
	return &TxCommitter{api: api}
}

func (c *TxCommitter) Commit(ctx context.Context, lines []CartLine, amountPaid decimal.Decimal) error {
	req := SaleRequest{
		SaleID:     uuid.NewString(),
		AmountPaid: amountPaid,
	}
	for _, line := range lines {
		req.Lines = append(req.Lines, sale.Line{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
		})
	}

	_, err := c.api.CommitSale(ctx, req)
	return err
}
