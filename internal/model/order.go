package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the snapshot taken when a cart is confirmed. Items and amounts
// never change after creation; only Status and IsPaid do.
type Order struct {
	ID             uuid.UUID       `json:"id"`
	OrderNumber    string          `json:"orderId"`
	Sequence       int             `json:"sequence"`
	Items          []OrderItem     `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountType   string          `json:"discountType,omitempty"`
	DiscountValue  string          `json:"discountValue,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount"`
	TaxAmount      decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	Customer       Customer        `json:"customer"`
	PaymentMethod  string          `json:"paymentMethod"`
	AmountReceived decimal.Decimal `json:"amountReceived"`
	ChangeDue      decimal.Decimal `json:"changeDue"`
	IsPaid         bool            `json:"isPaid"`
	OrderType      string          `json:"orderType"`
	Status         string          `json:"status"`
	Source         string          `json:"source"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// OrderItem is one frozen line of an order. MenuItemID is nil for custom
// entries.
type OrderItem struct {
	MenuItemID *uuid.UUID      `json:"menuItemId,omitempty"`
	Name       string          `json:"name"`
	Portion    string          `json:"portion,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Note       string          `json:"note,omitempty"`
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Customer struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
	Notes      string `json:"notes,omitempty"`
	Returning  bool   `json:"returning"`
}
