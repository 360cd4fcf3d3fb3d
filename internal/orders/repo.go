package orders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ardiwn/go-inventory-api/internal/catalog"
	"github.com/ardiwn/go-inventory-api/internal/users"
)

// Repo is the pg-backed OrderStore. Reads expand each line item's product and
// the owning user via joins.
type Repo struct{ DB *pgxpool.Pool }

const orderCols = `o.id, o.user_id, o.status, o.total_cents, o.created_at, o.updated_at,
	u.id, u.name, u.email, u.role, u.created_at`

func scanOrder(rows pgx.Rows) (Order, error) {
	var (
		o        Order
		uid      *string
		uname    *string
		uemail   *string
		urole    *string
		ucreated *time.Time
	)
	err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt,
		&uid, &uname, &uemail, &urole, &ucreated)
	if err != nil {
		return o, err
	}
	if uid != nil {
		o.User = &users.User{ID: *uid, Name: *uname, Email: *uemail, Role: *urole, CreatedAt: *ucreated}
	}
	return o, nil
}

func (r *Repo) Find(ctx context.Context, f ListFilter, skip, limit int) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderCols+`
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE ($1='' OR o.status=$1)
		ORDER BY o.created_at DESC
		OFFSET $2 LIMIT $3`,
		string(f.Status), skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Count(ctx context.Context, f ListFilter) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE ($1='' OR status=$1)`,
		string(f.Status)).Scan(&n)
	return n, err
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderCols+`
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE o.id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	o, err := scanOrder(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()

	found := []Order{o}
	if err := r.loadItems(ctx, found); err != nil {
		return nil, err
	}
	return &found[0], nil
}

// loadItems attaches line items (with expanded products) to the given orders,
// preserving line-item order within each order.
func (r *Repo) loadItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, 0, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT i.order_id, i.product_id, i.qty, i.unit_price_cents,
		       p.id, p.sku, p.name, p.description, p.category, p.price_cents,
		       p.stock, p.in_stock, p.created_at, p.updated_at
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.order_id, i.pos`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	byOrder := make(map[string][]LineItem, len(orders))
	for rows.Next() {
		var (
			orderID string
			it      LineItem
			pid     *string
			sku     *string
			name    *string
			desc    *string
			cat     *string
			price   *int
			stock   *int
			inStock *bool
			created *time.Time
			updated *time.Time
		)
		err := rows.Scan(&orderID, &it.ProductID, &it.Qty, &it.UnitPriceCents,
			&pid, &sku, &name, &desc, &cat, &price, &stock, &inStock, &created, &updated)
		if err != nil {
			return err
		}
		if pid != nil {
			it.Product = &catalog.Product{
				ID: *pid, SKU: *sku, Name: *name, Description: *desc, Category: *cat,
				PriceCents: *price, Stock: *stock, InStock: *inStock,
				CreatedAt: *created, UpdatedAt: *updated,
			}
		}
		byOrder[orderID] = append(byOrder[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range orders {
		items := byOrder[orders[i].ID]
		if items == nil {
			items = []LineItem{}
		}
		orders[i].Items = items
	}
	return nil
}

func (r *Repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.UserID, string(o.Status), o.TotalCents, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	if err := insertItems(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) Save(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, total_cents=$3, updated_at=$4 WHERE id=$1`,
		o.ID, string(o.Status), o.TotalCents, o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("order vanished during save: " + o.ID)
	}

	// line items are replaced wholesale
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) Delete(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, o.ID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertItems(ctx context.Context, tx pgx.Tx, o *Order) error {
	for pos, it := range o.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, pos, product_id, qty, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, pos, it.ProductID, it.Qty, it.UnitPriceCents)
		if err != nil {
			return err
		}
	}
	return nil
}
