package apiclient

import (
	"context"
	"encoding/json"
	"net/http"

	"billdash/internal/models"
)

// Register creates a tenant and its first user, returning a session token.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, "register", http.MethodPost, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, "login", http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTenant(ctx context.Context) (*models.Tenant, error) {
	var out models.Tenant
	if err := c.do(ctx, "tenant", http.MethodGet, "/tenant", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUsage returns the current month's usage against the quota.
func (c *Client) GetUsage(ctx context.Context) (*models.UsageSnapshot, error) {
	var out models.UsageSnapshot
	if err := c.do(ctx, "usage", http.MethodGet, "/usage", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUsageHistory(ctx context.Context) ([]models.UsageRecord, error) {
	var out models.UsageHistory
	if err := c.do(ctx, "usage_history", http.MethodGet, "/usage/history", nil, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// CalculateInvoice asks the backend to generate the current month's invoice.
// Only admins may call it; others get a 403.
func (c *Client) CalculateInvoice(ctx context.Context) (*models.InvoiceSummary, error) {
	var out models.InvoiceSummary
	if err := c.do(ctx, "billing_calculate", http.MethodPost, "/billing/calculate", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetInvoices(ctx context.Context) ([]models.Invoice, error) {
	var out models.InvoiceList
	if err := c.do(ctx, "billing_invoices", http.MethodGet, "/billing/invoices", nil, &out); err != nil {
		return nil, err
	}
	return out.Invoices, nil
}

// GetDemoData makes a metered call. Its payload is opaque to the dashboard;
// the call exists to consume quota. Exhausted quota yields a 429.
func (c *Client) GetDemoData(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, "demo_data", http.MethodGet, "/demo/data", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
