package constants

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusFailed    = "failed"
)

// Transaction types and statuses
const (
	TransactionTypePurchase  = "purchase"
	TransactionStatusSuccess = "success"
)

// Order failure reasons, persisted on the order row for audit
const (
	FailureReasonGatewayInit    = "gateway_init_failed"
	FailureReasonVerifyFailed   = "verify_failed"
	FailureReasonAmountMismatch = "amount_mismatch"
	FailureReasonExpired        = "intent_expired"
)

// Queue names
const (
	QueueDefault = "default"
)

// Task type names
const (
	TaskOrderExpire = "order:expire"
)
