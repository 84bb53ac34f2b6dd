package domain

// PaymentState is the provider's fine-grained payment state as returned
// by the payments API. The set is open: FooPay adds states between API
// revisions, so anything unrecognized maps to "no change".
type PaymentState string

const (
	StateCreated        PaymentState = "Created"
	StateAuthorized     PaymentState = "Authorized"
	StateAuthorizing    PaymentState = "Authorizing"
	StateApproved       PaymentState = "Approved"
	StateCapturing      PaymentState = "Capturing"
	StateSaleInProgress PaymentState = "SaleInProgress"
	StateAuthHold       PaymentState = "ProviderAuthorizedHold"
	StateCancelling     PaymentState = "Cancelling"
	StateCapturedHold   PaymentState = "CapturedHold"
	StateRefunding      PaymentState = "Refunding"
	StateCaptured       PaymentState = "Captured"
	StateFailed         PaymentState = "Failed"
	StateDisputed       PaymentState = "Disputed"
	StateRefunded       PaymentState = "Refunded"
)

// NextStatus maps a provider payment state onto the order status it
// implies. In-flight provider states park the order on-hold, Captured
// means the money is collected, Failed/Disputed fail the order, and an
// unrecognized state leaves the current status untouched.
func NextStatus(current OrderStatus, state PaymentState) OrderStatus {
	switch state {
	case StateCreated, StateAuthorized, StateAuthorizing, StateApproved,
		StateCapturing, StateSaleInProgress, StateAuthHold,
		StateCancelling, StateCapturedHold, StateRefunding:
		return StatusOnHold
	case StateCaptured:
		return StatusProcessing
	case StateFailed, StateDisputed:
		return StatusFailed
	case StateRefunded:
		return StatusRefunded
	default:
		return current
	}
}
