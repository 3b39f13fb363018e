package orders

import (
	"fmt"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
)

type IllegalTransitionError struct {
	ItemID string
	From   Status
	To     Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("item %s: illegal transition %s -> %s", e.ItemID, e.From, e.To)
}

func illegalTransition(itemID string, from, to Status) error {
	return errs.Mark(&IllegalTransitionError{ItemID: itemID, From: from, To: to}, errs.ErrIllegalTransition)
}

// Transition returns item moved to status to. Unknown targets are invalid
// input; known but unreachable targets are illegal transitions. Nothing is
// clamped.
func Transition(item OrderItem, to Status) (OrderItem, error) {
	if !to.Valid() {
		return item, errs.Mark(errs.Newf("unknown status %q", to), errs.ErrInvalidInput)
	}
	if !CanTransition(item.Status, to) {
		return item, illegalTransition(item.ID, item.Status, to)
	}
	item.Status = to
	return item, nil
}

// DeriveOrderStatus is the least advanced status among the items that are
// not cancelled. An order whose items are all cancelled is cancelled; an
// order without items is pending.
func DeriveOrderStatus(items []OrderItem) Status {
	if len(items) == 0 {
		return StatusPending
	}
	derived := StatusCancelled
	for _, it := range items {
		if it.Status == StatusCancelled {
			continue
		}
		if derived == StatusCancelled || rank[it.Status] < rank[derived] {
			derived = it.Status
		}
	}
	return derived
}

func hasDelivered(items []OrderItem) bool {
	for _, it := range items {
		if it.Status == StatusDelivered {
			return true
		}
	}
	return false
}

// CanBeCancelled is false once any item is delivered or the order as a whole
// has reached a terminal status.
func CanBeCancelled(o Order) bool {
	if hasDelivered(o.Items) {
		return false
	}
	return !DeriveOrderStatus(o.Items).IsTerminal()
}

// PossibleStatuses lists the next order level statuses, one step from the
// derived status. Cancelled is withheld while any item is delivered.
func PossibleStatuses(o Order) []Status {
	next := NextStatuses(DeriveOrderStatus(o.Items))
	if !hasDelivered(o.Items) {
		return next
	}
	out := next[:0]
	for _, s := range next {
		if s != StatusCancelled {
			out = append(out, s)
		}
	}
	return out
}
