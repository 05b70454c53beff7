package sale

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	Commit(ctx context.Context, saleID string, lines []Line, amountPaid decimal.Decimal) (CommitResult, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Commit applies a whole cart as one transaction:
//   - merges duplicate lines for the same product, then locks each product
//     row (SELECT ... FOR UPDATE), in cart order
//   - if any line is short, rolls back and returns the insufficient lines
//     (no mutation); an unknown product counts as zero available
//   - otherwise decrements stock for every line, records the sale with its
//     items, and commits
//
// The sale either lands in full or not at all; there is no partial commit.
func (r *PostgresRepository) Commit(ctx context.Context, saleID string, lines []Line, amountPaid decimal.Decimal) (CommitResult, error) {
	res := CommitResult{}

	// Duplicate product lines are merged up front. The floor check compares
	// against the stock read before any decrement, so two lines of the same
	// product would each pass individually while their sum oversells the row.
	merged := make([]Line, 0, len(lines))
	byProduct := make(map[int64]int, len(lines))
	for _, line := range lines {
		if i, ok := byProduct[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		byProduct[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	lines = merged

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return res, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	type locked struct {
		productID int64
		requested int
		available int
		unitPrice decimal.Decimal
		minStock  int
	}
	lockedRows := make([]locked, 0, len(lines))

	for _, line := range lines {
		var (
			available int
			unitPrice decimal.Decimal
			minStock  int
		)
		err := tx.QueryRow(ctx, `
			SELECT stock, sale_price, min_stock
			FROM products
			WHERE id=$1
			FOR UPDATE
		`, line.ProductID).Scan(&available, &unitPrice, &minStock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				available = 0
			} else {
				return res, err
			}
		}

		lockedRows = append(lockedRows, locked{
			productID: line.ProductID,
			requested: line.Quantity,
			available: available,
			unitPrice: unitPrice,
			minStock:  minStock,
		})
		if available < line.Quantity {
			res.Insufficient = append(res.Insufficient, InsufficientLine{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: available,
			})
		}
	}

	if len(res.Insufficient) > 0 {
		return res, nil
	}

	s := &Sale{
		ID:         saleID,
		Total:      decimal.Zero,
		AmountPaid: amountPaid,
		CreatedAt:  time.Now().UTC(),
	}

	for _, row := range lockedRows {
		var remaining int
		err := tx.QueryRow(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = now()
			WHERE id = $1
			RETURNING stock
		`, row.productID, row.requested).Scan(&remaining)
		if err != nil {
			return res, err
		}

		subtotal := row.unitPrice.Mul(decimal.NewFromInt(int64(row.requested)))
		s.Items = append(s.Items, Item{
			ProductID: row.productID,
			Quantity:  row.requested,
			UnitPrice: row.unitPrice,
			Subtotal:  subtotal,
		})
		s.Total = s.Total.Add(subtotal)

		res.Levels = append(res.Levels, StockLevel{
			ProductID: row.productID,
			Stock:     remaining,
			MinStock:  row.minStock,
		})
	}
	s.Change = s.AmountPaid.Sub(s.Total)

	if err := insertSale(ctx, tx, s); err != nil {
		return res, err
	}

	if err := tx.Commit(ctx); err != nil {
		return res, err
	}

	res.Sale = s
	return res, nil
}

func insertSale(ctx context.Context, tx pgx.Tx, s *Sale) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO sales (id, total, amount_paid, change_due, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.Total, s.AmountPaid, s.Change, s.CreatedAt)
	if err != nil {
		return err
	}

	for _, it := range s.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), s.ID, it.ProductID, it.Quantity, it.UnitPrice, it.Subtotal)
		if err != nil {
			return err
		}
	}
	return nil
}
