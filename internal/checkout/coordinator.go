package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/uristernik/javaproject/internal/store"
	"go.uber.org/zap"
)

// ErrInvalidRequest marks a checkout rejected before any stock was
// touched. The client can fix the basket and resubmit safely.
var ErrInvalidRequest = errors.New("invalid checkout request")

type Request struct {
	UserID          int64
	DeliveryAddress string
	TotalPrice      decimal.Decimal
	Items           []Item
}

type Item struct {
	ProductID  int64
	QuantityKG decimal.Decimal
	PricePerKG int64
}

type StockReserver interface {
	Reserve(ctx context.Context, items []store.ReserveItem) error
}

type OrderCreator interface {
	Create(ctx context.Context, req store.CreateOrderRequest) (int64, error)
}

// Coordinator sequences one checkout: validate, reserve stock, persist
// the order. Reservation and persistence are two independent
// transactions. If persistence fails after a successful reservation
// the stock stays decremented with no order backing it; the
// coordinator logs that state loudly but does not auto-compensate
// (releasing here could double-release against a commit that actually
// landed). Remediation is StockLedger.Release, driven by an operator.
type Coordinator struct {
	ledger StockReserver
	orders OrderCreator
	logger *zap.Logger
}

func NewCoordinator(ledger StockReserver, orders OrderCreator, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		ledger: ledger,
		orders: orders,
		logger: logger,
	}
}

// Process runs one checkout end to end and returns the new order ID.
// Ledger and store errors propagate unmodified so callers can
// distinguish insufficient stock from an unknown user.
func (c *Coordinator) Process(ctx context.Context, req Request) (int64, error) {
	if err := validate(req); err != nil {
		return 0, err
	}

	reserveItems := make([]store.ReserveItem, 0, len(req.Items))
	for _, item := range req.Items {
		reserveItems = append(reserveItems, store.ReserveItem{
			ProductID:  item.ProductID,
			QuantityKG: item.QuantityKG,
		})
	}

	if err := c.ledger.Reserve(ctx, reserveItems); err != nil {
		return 0, err
	}

	lines := make([]store.OrderLineRequest, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, store.OrderLineRequest{
			ProductID:  item.ProductID,
			QuantityKG: item.QuantityKG,
			PricePerKG: item.PricePerKG,
		})
	}

	orderID, err := c.orders.Create(ctx, store.CreateOrderRequest{
		UserID:          req.UserID,
		DeliveryAddress: req.DeliveryAddress,
		TotalPrice:      req.TotalPrice,
		Lines:           lines,
	})
	if err != nil {
		// Stock is already decremented and will not be put back
		// automatically; make the orphaned reservation visible.
		c.logger.Error("orphaned reservation: stock decremented but order not recorded",
			zap.Int64("user_id", req.UserID),
			zap.Any("items", reserveItems),
			zap.Error(err),
		)
		return 0, err
	}

	c.logger.Info("checkout completed",
		zap.Int64("user_id", req.UserID),
		zap.Int64("order_id", orderID),
		zap.Int("line_count", len(req.Items)),
	)

	return orderID, nil
}

func validate(req Request) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: empty basket", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return fmt.Errorf("%w: delivery address is required", ErrInvalidRequest)
	}
	if req.TotalPrice.IsNegative() {
		return fmt.Errorf("%w: negative total price", ErrInvalidRequest)
	}
	for _, item := range req.Items {
		if !item.QuantityKG.IsPositive() {
			return fmt.Errorf("%w: non-positive quantity for product %d", ErrInvalidRequest, item.ProductID)
		}
		if item.PricePerKG < 0 {
			return fmt.Errorf("%w: negative price for product %d", ErrInvalidRequest, item.ProductID)
		}
	}
	return nil
}
