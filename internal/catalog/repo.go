package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateSKU = errors.New("sku already exists")

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, sku, name, description, category, price_cents, stock, in_stock, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category,
		&p.PriceCents, &p.Stock, &p.InStock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) FindByIDs(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Save persists every mutable field and rederives the in_stock flag from stock.
func (r *Repo) Save(ctx context.Context, p *Product) error {
	p.InStock = p.Stock > 0
	p.UpdatedAt = time.Now().UTC()
	_, err := r.DB.Exec(ctx, `
		UPDATE products
		SET sku=$2, name=$3, description=$4, category=$5, price_cents=$6,
		    stock=$7, in_stock=$8, updated_at=$9
		WHERE id=$1`,
		p.ID, p.SKU, p.Name, p.Description, p.Category, p.PriceCents,
		p.Stock, p.InStock, p.UpdatedAt)
	return dupSKU(err)
}

func (r *Repo) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	p.InStock = p.Stock > 0
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(`+productCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.SKU, p.Name, p.Description, p.Category, p.PriceCents,
		p.Stock, p.InStock, p.CreatedAt, p.UpdatedAt)
	return dupSKU(err)
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) (*ProductPage, error) {
	page, limit := params.Page, params.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	skip := (page - 1) * limit

	where := ` WHERE ($1='' OR category=$1) AND ($2='' OR name ILIKE '%'||$2||'%')`

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where,
		params.Category, params.Search).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products`+where+`
		ORDER BY created_at DESC OFFSET $3 LIMIT $4`,
		params.Category, params.Search, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &ProductPage{
		Items: items,
		Total: total,
		Page:  page,
		Pages: (total + limit - 1) / limit,
	}, nil
}

func dupSKU(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSKU
	}
	return err
}
