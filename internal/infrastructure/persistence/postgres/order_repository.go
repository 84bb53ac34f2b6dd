package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/foopay/storefront-adapter/internal/domain"
	"github.com/foopay/storefront-adapter/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository is the Postgres-backed order state adapter. Status
// writes are compare-and-swap on the expected current status: a racing
// reconciliation that lost simply sees zero rows updated.
type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, status, amount_cents, currency,
		       customer_email, customer_first_name, customer_last_name, customer_phone,
		       address_line1, address_line2, address_city, address_state,
		       address_postal_code, address_country, created_at
		FROM orders WHERE id = $1
	`

	var o domain.Order
	err := r.db.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.Status,
		&o.AmountCents,
		&o.Currency,
		&o.Customer.Email,
		&o.Customer.FirstName,
		&o.Customer.LastName,
		&o.Customer.Phone,
		&o.Address.Line1,
		&o.Address.Line2,
		&o.Address.City,
		&o.Address.State,
		&o.Address.PostalCode,
		&o.Address.Country,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	query := `
		SELECT name, quantity, unit_price_cents, virtual
		FROM order_items WHERE order_id = $1 ORDER BY position
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var it domain.LineItem
		if err := rows.Scan(&it.Name, &it.Quantity, &it.UnitPriceCents, &it.Virtual); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

func (r *OrderRepository) GetStatus(ctx context.Context, id string) (domain.OrderStatus, error) {
	return statusOf(ctx, r.db, id)
}

// statusOf reads the current status through any Executor, so the CAS
// paths can re-check existence inside their own transaction.
func statusOf(ctx context.Context, q persistence.Executor, id string) (domain.OrderStatus, error) {
	var status domain.OrderStatus
	err := q.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrOrderNotFound
		}
		return "", fmt.Errorf("failed to load order status: %w", err)
	}
	return status, nil
}

// SetStatus transitions the order from one status to another and
// records a note, atomically. applied=false means the order was no
// longer in the expected status when the write landed.
func (r *OrderRepository) SetStatus(ctx context.Context, id string, from, to domain.OrderStatus, note string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := statusOf(ctx, tx, id); err != nil {
			return false, err
		}
		return false, nil
	}

	if note != "" {
		if err := insertNote(ctx, tx, id, note); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit status update: %w", err)
	}

	return true, nil
}

// MarkPaid records payment completion: processing status, paid
// timestamp and the provider payment id, with the same CAS guard as
// SetStatus.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, from domain.OrderStatus, paymentID string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE orders
		 SET status = $3, paid_at = now(), transaction_id = $4, updated_at = now()
		 WHERE id = $1 AND status = $2 AND paid_at IS NULL`,
		id, string(from), string(domain.StatusProcessing), paymentID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := statusOf(ctx, tx, id); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := insertNote(ctx, tx, id, "FooPay payment captured"); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit paid update: %w", err)
	}

	return true, nil
}

func (r *OrderRepository) GetMetadata(ctx context.Context, id, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx,
		`SELECT value FROM order_metadata WHERE order_id = $1 AND key = $2`,
		id, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load order metadata: %w", err)
	}
	return value, nil
}

// SaveSessionRef writes the payment id and redirect URL in one
// transaction: either the full session reference lands or nothing does.
func (r *OrderRepository) SaveSessionRef(ctx context.Context, id string, ref domain.SessionRef) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertMetadata(ctx, tx, id, domain.MetaPaymentID, ref.PaymentID); err != nil {
		return err
	}
	if err := upsertMetadata(ctx, tx, id, domain.MetaRedirectURL, ref.RedirectURL); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit session reference: %w", err)
	}

	return nil
}

func upsertMetadata(ctx context.Context, q persistence.Executor, orderID, key, value string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO order_metadata (order_id, key, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (order_id, key) DO UPDATE SET value = EXCLUDED.value`,
		orderID, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set order metadata: %w", err)
	}
	return nil
}

func insertNote(ctx context.Context, q persistence.Executor, orderID, note string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO order_notes (order_id, note, created_at) VALUES ($1, $2, now())`,
		orderID, note,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order note: %w", err)
	}
	return nil
}
