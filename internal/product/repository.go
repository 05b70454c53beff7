package product

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrDuplicateSKU = errors.New("sku already registered")
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	Create(ctx context.Context, f Fields) (Product, error)
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	// AdjustStock applies stock = stock + delta as a single relative UPDATE
	// in the store. Never a read-modify-write round trip: concurrent
	// adjustments must not lose updates.
	AdjustStock(ctx context.Context, id int64, delta int) (Product, error)
	Update(ctx context.Context, id int64, f Fields) (Product, error)
	Delete(ctx context.Context, id int64) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const productColumns = `id, name, sku, cost_price, sale_price, stock, min_stock, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.CostPrice, &p.SalePrice, &p.Stock, &p.MinStock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PostgresRepository) Create(ctx context.Context, f Fields) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (name, sku, cost_price, sale_price, stock, min_stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+productColumns,
		f.Name, f.SKU, f.CostPrice, f.SalePrice, f.Stock, f.MinStock)

	p, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, ErrDuplicateSKU
		}
		return Product{}, err
	}
	return p, nil
}

// List returns every product, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) AdjustStock(ctx context.Context, id int64, delta int) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		id, delta)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, f Fields) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE products
		SET name = $2, sku = $3, cost_price = $4, sale_price = $5, stock = $6, min_stock = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		id, f.Name, f.SKU, f.CostPrice, f.SalePrice, f.Stock, f.MinStock)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return Product{}, ErrDuplicateSKU
		}
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
