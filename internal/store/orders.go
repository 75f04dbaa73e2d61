package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/uristernik/javaproject/internal/database"
	"github.com/uristernik/javaproject/internal/models"
)

// OrderStore durably records completed orders. Orders are written once
// and never updated.
type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

type CreateOrderRequest struct {
	UserID          int64
	DeliveryAddress string
	TotalPrice      decimal.Decimal
	Lines           []OrderLineRequest
}

type OrderLineRequest struct {
	ProductID  int64
	QuantityKG decimal.Decimal
	PricePerKG int64
}

// Create inserts one order and its lines. The customer-facing number
// is computed as max(userorderid)+1 for the user inside the same
// serializable transaction, so two concurrent orders from one user
// cannot receive the same number; a lost race shows up as a
// serialization failure and is retried. Line prices are stored exactly
// as supplied by the caller; they are the snapshot the customer saw,
// not the current inventory price.
func (s *OrderStore) Create(ctx context.Context, req CreateOrderRequest) (int64, error) {
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return 0, fmt.Errorf("create order: delivery address is required")
	}
	if len(req.Lines) == 0 {
		return 0, fmt.Errorf("create order: no lines")
	}
	for _, line := range req.Lines {
		if !line.QuantityKG.IsPositive() {
			return 0, fmt.Errorf("create order: non-positive quantity for product %d", line.ProductID)
		}
	}

	var orderID int64

	err := database.WithRetry(ctx, s.db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE userid = $1)",
			req.UserID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}
		if !exists {
			return database.ErrUserNotFound
		}

		var userOrderID int
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(userorderid), 0) + 1 FROM orders WHERE userid = $1`,
			req.UserID).Scan(&userOrderID)
		if err != nil {
			return fmt.Errorf("next user order number: %w", err)
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (userid, userorderid, deliveryaddress, totalprice)
			 VALUES ($1, $2, $3, $4)
			 RETURNING orderid`,
			req.UserID, userOrderID, req.DeliveryAddress, req.TotalPrice).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, line := range req.Lines {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (orderid, productid, quantitykg, priceperkg)
				 VALUES ($1, $2, $3, $4)`,
				orderID, line.ProductID, line.QuantityKG, line.PricePerKG)
			if err != nil {
				return fmt.Errorf("create order line: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		return 0, err
	}

	return orderID, nil
}

func (s *OrderStore) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT orderid, userid, userorderid, deliveryaddress, totalprice
		FROM orders
		WHERE orderid = $1`

	err := s.db.QueryRowContext(ctx, query, orderID).Scan(
		&order.OrderID,
		&order.UserID,
		&order.UserOrderID,
		&order.DeliveryAddress,
		&order.TotalPrice,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	linesQuery := `
		SELECT oi.orderid, oi.productid, i.description, oi.quantitykg, oi.priceperkg
		FROM order_items oi
		JOIN inventory i ON oi.productid = i.productid
		WHERE oi.orderid = $1
		ORDER BY oi.productid`

	rows, err := s.db.QueryContext(ctx, linesQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	defer rows.Close()

	var lines []models.OrderLine
	for rows.Next() {
		var line models.OrderLine
		err := rows.Scan(
			&line.OrderID,
			&line.ProductID,
			&line.Description,
			&line.QuantityKG,
			&line.PricePerKG,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	order.Lines = lines

	return order, nil
}

// ListByUser returns a user's order history, newest first, lines
// included with current product descriptions for display.
func (s *OrderStore) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	query := `
		SELECT orderid, userid, userorderid, deliveryaddress, totalprice
		FROM orders
		WHERE userid = $1
		ORDER BY orderid DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachLines(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// ListAll returns every order in the system, newest first. Admin use.
func (s *OrderStore) ListAll(ctx context.Context) ([]models.Order, error) {
	query := `
		SELECT orderid, userid, userorderid, deliveryaddress, totalprice
		FROM orders
		ORDER BY orderid DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachLines(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

func scanOrders(rows *sql.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.OrderID,
			&order.UserID,
			&order.UserOrderID,
			&order.DeliveryAddress,
			&order.TotalPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

func (s *OrderStore) attachLines(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(orders))
	index := make(map[int64]int, len(orders))
	for i, order := range orders {
		ids = append(ids, order.OrderID)
		index[order.OrderID] = i
	}

	query := `
		SELECT oi.orderid, oi.productid, i.description, oi.quantitykg, oi.priceperkg
		FROM order_items oi
		JOIN inventory i ON oi.productid = i.productid
		WHERE oi.orderid = ANY($1)
		ORDER BY oi.orderid, oi.productid`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.OrderLine
		err := rows.Scan(
			&line.OrderID,
			&line.ProductID,
			&line.Description,
			&line.QuantityKG,
			&line.PricePerKG,
		)
		if err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		i := index[line.OrderID]
		orders[i].Lines = append(orders[i].Lines, line)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}
