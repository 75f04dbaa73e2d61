package models

import (
	"github.com/shopspring/decimal"
)

// InventoryRecord is one product's stock truth. StockKG is fractional
// (produce is sold by weight); PricePerKG is in the smallest currency
// unit.
type InventoryRecord struct {
	ProductID   int64           `json:"productId"`
	Description string          `json:"description"`
	StockKG     decimal.Decimal `json:"stockKG"`
	PricePerKG  int64           `json:"pricePerKG"`
}

type User struct {
	UserID    int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Type      int    `json:"type"`
}

// Order is immutable once created. UserOrderID is the customer-facing
// sequential number, scoped to the user; OrderID is globally unique.
type Order struct {
	OrderID         int64           `json:"orderId"`
	UserID          int64           `json:"userId"`
	UserOrderID     int             `json:"userOrderId"`
	DeliveryAddress string          `json:"deliveryAddress"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Lines           []OrderLine     `json:"lines,omitempty"`
}

// OrderLine carries the price the customer actually paid. PricePerKG
// is a snapshot taken at checkout, never a live reference to the
// inventory record.
type OrderLine struct {
	OrderID     int64           `json:"orderId"`
	ProductID   int64           `json:"productId"`
	Description string          `json:"description,omitempty"`
	QuantityKG  decimal.Decimal `json:"quantityKG"`
	PricePerKG  int64           `json:"pricePerKG"`
}

const (
	UserTypeCustomer = 1
	UserTypeAdmin    = 2
)
