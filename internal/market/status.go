package market

import "time"

// Status is the order lifecycle state.
type Status string

const (
	// StatusPending indicates the order exists and stock is reserved,
	// but the seller has not acknowledged it yet.
	StatusPending Status = "pending"
	// StatusConfirmed indicates the seller (or an incoming payment)
	// acknowledged the order.
	StatusConfirmed Status = "confirmed"
	// StatusReadyForPickup indicates the seller packed the order; the
	// buyer completes it by showing the pickup code.
	StatusReadyForPickup Status = "ready_for_pickup"
	// StatusCompleted is terminal: the buyer picked the order up.
	StatusCompleted Status = "completed"
	// StatusCancelled is terminal: buyer/seller/reaper cancelled, stock
	// has been restored.
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Event menggerakkan state machine; transisi di-key (state, event).
type Event string

const (
	EventConfirm         Event = "Confirm"
	EventPaymentReceived Event = "PaymentReceived"
	EventMarkReady       Event = "MarkReady"
	EventCompletePickup  Event = "CompletePickup"
	EventCancel          Event = "Cancel"
)

var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventConfirm:         StatusConfirmed,
		EventPaymentReceived: StatusConfirmed, // pembayaran meng-confirm order yang masih pending
		EventMarkReady:       StatusReadyForPickup,
		EventCancel:          StatusCancelled,
	},
	StatusConfirmed: {
		EventMarkReady: StatusReadyForPickup,
		EventCancel:    StatusCancelled,
	},
	StatusReadyForPickup: {
		EventCompletePickup: StatusCompleted,
		EventCancel:         StatusCancelled,
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Next returns the successor state for (from, ev), false when the
// transition is not defined.
func Next(from Status, ev Event) (Status, bool) {
	to, ok := transitions[from][ev]
	return to, ok
}

// ReasonExpired is the system reason stamped by the reaper.
const ReasonExpired = "expired - not completed within pickup window"

func (o *Order) Confirm() error {
	next, ok := Next(o.Status, EventConfirm)
	if !ok {
		return Errorf(KindInvalidState, "order %s cannot be confirmed from status %s", o.OrderNumber, o.Status)
	}
	o.Status = next
	return nil
}

// MarkReady guards on payment, not on the current state: the operational
// rule is "order must be paid first".
func (o *Order) MarkReady() error {
	if o.PaymentStatus != PaymentPaid {
		return Errorf(KindInvalidState, "order must be paid first")
	}
	next, ok := Next(o.Status, EventMarkReady)
	if !ok {
		return Errorf(KindInvalidState, "order %s cannot be marked ready from status %s", o.OrderNumber, o.Status)
	}
	o.Status = next
	return nil
}

// CompletePickup verifies the code shown by the buyer and closes the order.
func (o *Order) CompletePickup(suppliedCode string, now time.Time) error {
	next, ok := Next(o.Status, EventCompletePickup)
	if !ok {
		return Errorf(KindInvalidState, "order %s is not ready for pickup", o.OrderNumber)
	}
	if suppliedCode != o.PickupCode {
		return Errorf(KindValidation, "pickup code does not match")
	}
	o.Status = next
	t := now.UTC()
	o.PickedUpAt = &t
	return nil
}

// Cancel moves the order to the terminal cancelled state. Restoring the
// reserved stock is the caller's responsibility (store/reaper path).
func (o *Order) Cancel(reason string, now time.Time) error {
	next, ok := Next(o.Status, EventCancel)
	if !ok {
		return Errorf(KindInvalidState, "order %s is already %s", o.OrderNumber, o.Status)
	}
	if reason == "" {
		reason = "cancelled"
	}
	o.Status = next
	o.CancelReason = reason
	t := now.UTC()
	o.CancelledAt = &t
	return nil
}

// MarkPaid records a successful payment callback. A pending order is
// confirmed by the same event.
func (o *Order) MarkPaid(reference string, now time.Time) error {
	if o.PaymentStatus == PaymentPaid {
		return Errorf(KindConflict, "order %s is already paid", o.OrderNumber)
	}
	if o.Status.Terminal() {
		return Errorf(KindInvalidState, "order %s is %s", o.OrderNumber, o.Status)
	}
	o.PaymentStatus = PaymentPaid
	o.PaymentRef = reference
	t := now.UTC()
	o.PaidAt = &t
	if next, ok := Next(o.Status, EventPaymentReceived); ok {
		o.Status = next
	}
	return nil
}
