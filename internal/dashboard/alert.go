package dashboard

import "strings"

// Level is the severity of an inline alert.
type Level string

const (
	LevelSuccess Level = "success"
	LevelDanger  Level = "danger"
)

// Alert is the single inline message a view may carry.
type Alert struct {
	Level Level
	Text  string
}

// User-facing messages.
const (
	MsgRegistrationFailed = "Registration failed"
	MsgLoginFailed        = "Login failed"
	MsgTestCallSucceeded  = "API call successful! Usage updated."
	MsgRateLimitExceeded  = "Rate limit exceeded! Try again next month."
	MsgTestCallFailed     = "API call failed: "
	MsgInvoiceGenerated   = "Invoice generated successfully!"
	MsgAdminsOnly         = "Only admins can generate invoices."
	MsgInvoiceFailed      = "Failed to generate invoice."
)

// UsageDangerThreshold is the percentage above which usage is flagged.
const UsageDangerThreshold = 80

func success(text string) *Alert {
	return &Alert{Level: LevelSuccess, Text: text}
}

func danger(text string) *Alert {
	return &Alert{Level: LevelDanger, Text: text}
}

// alertFor picks the level from the text the way the billing page always
// has: anything mentioning success is a success.
func alertFor(text string) *Alert {
	if strings.Contains(text, "success") {
		return success(text)
	}
	return danger(text)
}
