package audithook

// Action constants for audit events.
const (
	// Customer actions
	ActionCustomerRegistered = "customer.registered"

	// Bill actions
	ActionBillCreated = "bill.created"
	ActionBillSettled = "bill.settled"

	// Payment actions
	ActionPaymentRecorded = "payment.recorded"
	ActionCreditRecorded  = "credit.recorded"

	// Store actions
	ActionPersistFailed = "persist.failed"
)

// Resource constants for audit events.
const (
	ResourceCustomer    = "customer"
	ResourceBill        = "bill"
	ResourceTransaction = "transaction"
)

// Category constants for audit events.
const (
	CategoryCustomer = "customer"
	CategoryBilling  = "billing"
	CategoryPayment  = "payment"
	CategoryStorage  = "storage"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
