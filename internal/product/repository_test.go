package product

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var productCols = []string{"id", "name", "sku", "cost_price", "sale_price", "stock", "min_stock", "created_at", "updated_at"}

func productRow(id int64, name, sku string, stock, minStock int) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(productCols).
		AddRow(id, name, sku, decimal.New(500, -2), decimal.New(1000, -2), stock, minStock, now, now)
}

func TestRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	ctx := context.Background()

	f := Fields{
		Name:      "Coffee 500g",
		SKU:       "CAFE-500",
		CostPrice: decimal.New(500, -2),
		SalePrice: decimal.New(1000, -2),
		Stock:     10,
		MinStock:  3,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO products`)).
		WithArgs(f.Name, f.SKU, f.CostPrice, f.SalePrice, f.Stock, f.MinStock).
		WillReturnRows(productRow(1, f.Name, f.SKU, f.Stock, f.MinStock))

	p, err := repo.Create(ctx, f)
	require.NoError(t, err)
	require.Equal(t, int64(1), p.ID)
	require.Equal(t, "CAFE-500", p.SKU)
	require.Equal(t, 10, p.Stock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreate_DuplicateSKU(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO products`)).
		WithArgs("Coffee 500g", "CAFE-500", pgxmock.AnyArg(), pgxmock.AnyArg(), 10, 3).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "products_sku_key"})

	_, err = repo.Create(context.Background(), Fields{
		Name: "Coffee 500g", SKU: "CAFE-500",
		CostPrice: decimal.New(500, -2), SalePrice: decimal.New(1000, -2),
		Stock: 10, MinStock: 3,
	})
	require.ErrorIs(t, err, ErrDuplicateSKU)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryList_NewestFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	now := time.Now()

	rows := pgxmock.NewRows(productCols).
		AddRow(int64(2), "Sugar", "SUGAR-1", decimal.New(100, -2), decimal.New(200, -2), 5, 1, now, now).
		AddRow(int64(1), "Coffee 500g", "CAFE-500", decimal.New(500, -2), decimal.New(1000, -2), 10, 3, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY id DESC`)).WillReturnRows(rows)

	products, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, int64(2), products[0].ID)
	require.Equal(t, int64(1), products[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryAdjustStock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	// The decrement is a single relative UPDATE in the store, never a
	// read-modify-write on this side.
	mock.ExpectQuery(regexp.QuoteMeta(`SET stock = stock + $2`)).
		WithArgs(int64(1), -3).
		WillReturnRows(productRow(1, "Coffee 500g", "CAFE-500", 7, 3))

	p, err := repo.AdjustStock(context.Background(), 1, -3)
	require.NoError(t, err)
	require.Equal(t, 7, p.Stock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryAdjustStock_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`SET stock = stock + $2`)).
		WithArgs(int64(99), 1).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.AdjustStock(context.Background(), 99, 1)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdate_Overwrite(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	f := Fields{
		Name:      "Coffee 1kg",
		SKU:       "CAFE-1000",
		CostPrice: decimal.New(900, -2),
		SalePrice: decimal.New(1800, -2),
		Stock:     25,
		MinStock:  5,
	}

	// Absolute values, full overwrite: the stock written is exactly the
	// caller-supplied number, not a delta.
	mock.ExpectQuery(regexp.QuoteMeta(`SET name = $2, sku = $3`)).
		WithArgs(int64(1), f.Name, f.SKU, f.CostPrice, f.SalePrice, f.Stock, f.MinStock).
		WillReturnRows(productRow(1, f.Name, f.SKU, f.Stock, f.MinStock))

	p, err := repo.Update(context.Background(), 1, f)
	require.NoError(t, err)
	require.Equal(t, 25, p.Stock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products`)).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDelete_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products`)).
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.ErrorIs(t, repo.Delete(context.Background(), 42), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGet_StoreError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id=$1`)).
		WithArgs(int64(1)).
		WillReturnError(boom)

	_, err = repo.Get(context.Background(), 1)
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
