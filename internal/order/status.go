package order

type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

var statusDisplay = map[Status]string{
	StatusPending:        "Pending",
	StatusProcessing:     "Processing",
	StatusShipped:        "Shipped",
	StatusOutForDelivery: "Out for Delivery",
	StatusDelivered:      "Delivered",
	StatusCancelled:      "Cancelled",
}

// forward holds the single non-cancel successor of each status.
var forward = map[Status]Status{
	StatusPending:        StatusProcessing,
	StatusProcessing:     StatusShipped,
	StatusShipped:        StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

func (s Status) Display() string { return statusDisplay[s] }

func (s Status) Valid() bool {
	_, ok := statusDisplay[s]
	return ok
}

func (s Status) Terminal() bool { return s == StatusDelivered || s == StatusCancelled }

// CanTransition reports whether an order may move from s to to. Staying in
// the same status is not a transition.
func (s Status) CanTransition(to Status) bool {
	if s.Terminal() || !to.Valid() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return forward[s] == to
}

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "COD"
	PaymentCard PaymentMethod = "CARD"
	PaymentUPI  PaymentMethod = "UPI"
	PaymentNet  PaymentMethod = "NET"
)

var paymentDisplay = map[PaymentMethod]string{
	PaymentCOD:  "Cash on Delivery",
	PaymentCard: "Credit / Debit Card",
	PaymentUPI:  "UPI",
	PaymentNet:  "Net Banking",
}

func (p PaymentMethod) Display() string { return paymentDisplay[p] }
