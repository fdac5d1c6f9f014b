package enums

// OrderStatus mirrors the payment gateway's status vocabulary. The order simply
// stores the latest status the gateway reported.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusInProcess OrderStatus = "in_process"
)

// KnownOrderStatus reports whether the gateway status is one we track.
func KnownOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected, OrderStatusInProcess:
		return true
	}
	return false
}
