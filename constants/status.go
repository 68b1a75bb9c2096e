package constants

// OrderStatus is the canonical status for rows in the orders sheet.
type OrderStatus string

// Stable values (store these exact strings in the sheet).
const (
	StatusPending OrderStatus = "待出貨" // created, not yet shipped
	StatusShipped OrderStatus = "已出貨" // tracking number reconciled
	StatusDeleted OrderStatus = "已刪除" // cancelled before shipping
)

// CanTransition reports whether a status change is allowed:
// Pending→Shipped, Pending→Deleted, Shipped→Pending (shipment undo).
func CanTransition(from, to OrderStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusShipped || to == StatusDeleted
	case StatusShipped:
		return to == StatusPending
	default:
		return false
	}
}
