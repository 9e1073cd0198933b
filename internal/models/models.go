// Package models holds the billing API payloads shared by the client, the
// session store and the mock backend. Field names follow the backend's
// camelCase JSON.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	str "billdash/pkg/string"
)

// Roles the backend assigns. Other values are preserved verbatim.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Invoice statuses the dashboard distinguishes.
const (
	InvoiceStatusPaid    = "paid"
	InvoiceStatusPending = "pending"
)

// User is the signed-in account as returned by register/login.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId,omitempty"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Tenant is the organisation owning the account. Read-only on the client.
type Tenant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Plan      string     `json:"plan,omitempty"`
	Status    string     `json:"status,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// RegisterRequest creates a tenant together with its first (admin) user.
type RegisterRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	TenantName string `json:"tenantName" validate:"required"`
}

// Normalize trims input and lower-cases the email.
func (r *RegisterRequest) Normalize() {
	str.TrimStrings(&r.TenantName)
	r.Email = str.NormalizeEmail(r.Email)
}

// LoginRequest exchanges credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = str.NormalizeEmail(r.Email)
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token  string  `json:"token"`
	User   *User   `json:"user"`
	Tenant *Tenant `json:"tenant"`
}

// UsageSnapshot is the current month's consumption against the quota.
type UsageSnapshot struct {
	Month          string  `json:"month"`
	Used           int64   `json:"used"`
	Limit          int64   `json:"limit"`
	Remaining      int64   `json:"remaining"`
	PercentageUsed Decimal `json:"percentageUsed"`
}

// UsageRecord is one month of usage history.
type UsageRecord struct {
	Month        string     `json:"month"`
	APICallCount int64      `json:"apiCallCount"`
	LastUpdated  *time.Time `json:"lastUpdated,omitempty"`
}

// UsageHistory wraps the history list as the backend sends it.
type UsageHistory struct {
	History []UsageRecord `json:"history"`
}

// Invoice is a billed (or pending) month.
type Invoice struct {
	ID              string     `json:"id"`
	Month           string     `json:"month"`
	TotalCalls      int64      `json:"totalCalls"`
	AmountDue       Decimal    `json:"amountDue"`
	Status          string     `json:"status"`
	StripeInvoiceID string     `json:"stripeInvoiceId,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
}

// InvoiceList wraps the invoice list as the backend sends it.
type InvoiceList struct {
	Invoices []Invoice `json:"invoices"`
}

// TierCharge is one pricing tier's share of an invoice.
type TierCharge struct {
	Tier   string  `json:"tier"`
	Calls  int64   `json:"calls"`
	Rate   Decimal `json:"rate"`
	Amount Decimal `json:"amount"`
}

// InvoiceSummary is the result of invoice generation.
type InvoiceSummary struct {
	Invoice
	Breakdown []TierCharge `json:"breakdown,omitempty"`
}

// Decimal is a numeric value that the backend may send either as a JSON
// number or as a string (Postgres NUMERIC columns arrive as strings). The
// original text is kept so views can show the value exactly as received.
type Decimal struct {
	Text  string
	Value float64
}

// NewDecimal builds a Decimal from a float, formatted with the given precision.
func NewDecimal(v float64, prec int) Decimal {
	return Decimal{Text: strconv.FormatFloat(v, 'f', prec, 64), Value: v}
}

// String returns the value as received.
func (d Decimal) String() string {
	return d.Text
}

// MarshalJSON emits the value as a JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	if d.Text == "" {
		return []byte("0"), nil
	}
	return []byte(d.Text), nil
}

// UnmarshalJSON accepts a number, a numeric string or null.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = Decimal{}
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	if text == "" {
		*d = Decimal{}
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("decimal %q: %w", text, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("decimal %q: not a finite number", text)
	}
	*d = Decimal{Text: text, Value: v}
	return nil
}
