package models

type OrderStatus string

const (
	OrderStatusPending     OrderStatus = "PENDING"
	OrderStatusAwaitingCOD OrderStatus = "AWAITING_COD"
	OrderStatusPaid        OrderStatus = "PAID"
	OrderStatusSent        OrderStatus = "SENT"
	OrderStatusDelivered   OrderStatus = "DELIVERED"
	OrderStatusFailed      OrderStatus = "FAILED"
	OrderStatusCanceled    OrderStatus = "CANCELED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:     {OrderStatusAwaitingCOD, OrderStatusCanceled},
	OrderStatusAwaitingCOD: {OrderStatusSent, OrderStatusPaid, OrderStatusFailed, OrderStatusCanceled},
	OrderStatusSent:        {OrderStatusDelivered, OrderStatusFailed},
	OrderStatusDelivered:   {OrderStatusPaid},
}

// CanTransition reports whether the order state machine allows s -> next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Finalized is true for every status except PENDING, including statuses this
// build does not know about.
func (s OrderStatus) Finalized() bool {
	return s != OrderStatusPending
}

func (s OrderStatus) String() string {
	return string(s)
}
