package audit

import "time"

// Event is one entry in a tenant's audit trail. It is transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	TenantID  string            `json:"tenantId"`
	UserID    string            `json:"userId,omitempty"`
	Action    Action            `json:"action"`
	RequestID string            `json:"requestId,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

type Action string

const (
	ActionTenantRegistered Action = "tenant_registered"
	ActionUserAdded        Action = "user_added"
	ActionLoginSucceeded   Action = "login_succeeded"
	ActionLoginFailed      Action = "login_failed"
	ActionQuotaExceeded    Action = "quota_exceeded"
	ActionInvoiceGenerated Action = "invoice_generated"
)

// Trail is the list returned to tenant admins, newest first.
type Trail struct {
	Events []Event `json:"events"`
}
