package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/uristernik/javaproject/internal/database"
	"github.com/uristernik/javaproject/internal/models"
)

// StockLedger owns per-product available quantity. All stock mutation
// goes through its conditional updates; application code never does
// read-then-write on stockkg.
type StockLedger struct {
	db *sql.DB
}

func NewStockLedger(db *sql.DB) *StockLedger {
	return &StockLedger{db: db}
}

type ReserveItem struct {
	ProductID  int64
	QuantityKG decimal.Decimal
}

// Reserve decrements stock for every item in a single transaction.
// A decrement that matches zero rows (missing product or short stock)
// aborts the transaction, so earlier decrements in the same call are
// rolled back. Insufficient stock is a terminal outcome; no retry.
func (l *StockLedger) Reserve(ctx context.Context, items []ReserveItem) error {
	if len(items) == 0 {
		return fmt.Errorf("reserve: no items")
	}
	for _, item := range items {
		if !item.QuantityKG.IsPositive() {
			return fmt.Errorf("reserve: non-positive quantity for product %d", item.ProductID)
		}
	}

	return database.WithTransaction(ctx, l.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		for _, item := range items {
			result, err := tx.ExecContext(ctx,
				`UPDATE inventory
				 SET stockkg = stockkg - $1
				 WHERE productid = $2
				   AND stockkg >= $1`,
				item.QuantityKG, item.ProductID)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("get rows affected: %w", err)
			}

			if rowsAffected == 0 {
				return &database.InsufficientStockError{ProductID: item.ProductID}
			}
		}

		return nil
	})
}

// Release puts reserved quantities back. Used by restocking and by
// manual remediation of a reservation whose order was never recorded;
// the checkout path itself never calls it.
func (l *StockLedger) Release(ctx context.Context, items []ReserveItem) error {
	if len(items) == 0 {
		return fmt.Errorf("release: no items")
	}

	return database.WithTransaction(ctx, l.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		for _, item := range items {
			result, err := tx.ExecContext(ctx,
				`UPDATE inventory
				 SET stockkg = stockkg + $1
				 WHERE productid = $2`,
				item.QuantityKG, item.ProductID)
			if err != nil {
				return fmt.Errorf("increment stock: %w", err)
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("get rows affected: %w", err)
			}

			if rowsAffected == 0 {
				return database.ErrProductNotFound
			}
		}

		return nil
	})
}

func (l *StockLedger) AddProduct(ctx context.Context, description string, stockKG decimal.Decimal, pricePerKG int64) (*models.InventoryRecord, error) {
	record := &models.InventoryRecord{}

	query := `
		INSERT INTO inventory (description, stockkg, priceperkg)
		VALUES ($1, $2, $3)
		RETURNING productid, description, stockkg, priceperkg`

	err := l.db.QueryRowContext(ctx, query, description, stockKG, pricePerKG).Scan(
		&record.ProductID,
		&record.Description,
		&record.StockKG,
		&record.PricePerKG,
	)
	if err != nil {
		return nil, fmt.Errorf("add product: %w", err)
	}

	return record, nil
}

func (l *StockLedger) Get(ctx context.Context, productID int64) (*models.InventoryRecord, error) {
	record := &models.InventoryRecord{}

	query := `
		SELECT productid, description, stockkg, priceperkg
		FROM inventory
		WHERE productid = $1`

	err := l.db.QueryRowContext(ctx, query, productID).Scan(
		&record.ProductID,
		&record.Description,
		&record.StockKG,
		&record.PricePerKG,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return record, nil
}

func (l *StockLedger) List(ctx context.Context) ([]models.InventoryRecord, error) {
	query := `
		SELECT productid, description, stockkg, priceperkg
		FROM inventory
		ORDER BY productid`

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var records []models.InventoryRecord
	for rows.Next() {
		var record models.InventoryRecord
		err := rows.Scan(
			&record.ProductID,
			&record.Description,
			&record.StockKG,
			&record.PricePerKG,
		)
		if err != nil {
			return nil, fmt.Errorf("scan inventory record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return records, nil
}

// SetStock is the restock path: an absolute overwrite, not a delta.
func (l *StockLedger) SetStock(ctx context.Context, productID int64, stockKG decimal.Decimal) error {
	if stockKG.IsNegative() {
		return fmt.Errorf("set stock: negative quantity for product %d", productID)
	}

	result, err := l.db.ExecContext(ctx,
		`UPDATE inventory SET stockkg = $1 WHERE productid = $2`,
		stockKG, productID)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func (l *StockLedger) SetPrice(ctx context.Context, productID int64, pricePerKG int64) error {
	if pricePerKG < 0 {
		return fmt.Errorf("set price: negative price for product %d", productID)
	}

	result, err := l.db.ExecContext(ctx,
		`UPDATE inventory SET priceperkg = $1 WHERE productid = $2`,
		pricePerKG, productID)
	if err != nil {
		return fmt.Errorf("set price: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}
