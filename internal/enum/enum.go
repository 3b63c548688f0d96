package enum

// ── Group A: State machines ──

const (
	OrderStatusPending   = "pending"
	OrderStatusAccepted  = "accepted"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	OrderSourcePOS      = "pos"
	OrderSourceCustomer = "customer"
)

// ── Group B: Labels shown on receipts ──

const (
	OrderTypeDineIn   = "Dine In"
	OrderTypeTakeAway = "Take Away"
	OrderTypeDelivery = "Delivery"
)

// Card payments are taken on a separate terminal and only recorded here.
const (
	PaymentMethodCash   = "Cash"
	PaymentMethodCard   = "Card"
	PaymentMethodOnline = "Online"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// ── Group C: Access ──

const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// IsOrderType reports whether s is a known order type label.
func IsOrderType(s string) bool {
	switch s {
	case OrderTypeDineIn, OrderTypeTakeAway, OrderTypeDelivery:
		return true
	}
	return false
}

// IsPaymentMethod reports whether s is a known payment method label.
func IsPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodOnline:
		return true
	}
	return false
}

// IsOrderStatus reports whether s is a known order status.
func IsOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}
