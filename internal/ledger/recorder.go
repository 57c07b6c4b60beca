package ledger

import "arbflow/models"

// Recorder keeps the append-only order history. Entries are stored by
// value; history is immutable once recorded.
type Recorder struct {
	orders []models.Order
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one order to the history.
func (r *Recorder) Record(order models.Order) {
	r.orders = append(r.orders, order)
}

// Len returns the number of recorded orders.
func (r *Recorder) Len() int { return len(r.orders) }

// Orders returns a copy of the history in record order.
func (r *Recorder) Orders() []models.Order {
	out := make([]models.Order, len(r.orders))
	copy(out, r.orders)
	return out
}
