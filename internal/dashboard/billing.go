package dashboard

import (
	"context"

	"billdash/internal/guard"
	"billdash/internal/models"
	domainerrors "billdash/pkg/domain-errors"
)

// PricingTier is static reference text shown on the billing page. The
// backend owns the actual rates.
type PricingTier struct {
	Name  string
	Range string
	Price string
}

// PricingTiers lists the published tiers.
var PricingTiers = []PricingTier{
	{Name: "Tier 1: Free", Range: "0 - 10,000 calls", Price: "$0"},
	{Name: "Tier 2: Standard", Range: "10,001 - 100,000 calls", Price: "$0.001 / call"},
	{Name: "Tier 3: Premium", Range: "100,000+ calls", Price: "$0.0005 / call"},
}

// BillingView is the invoice list. IsAdmin gates invoice generation in the UI;
// the backend enforces it regardless.
type BillingView struct {
	Decision guard.Decision
	Invoices []models.Invoice
	IsAdmin  bool
	Tiers    []PricingTier
	Alert    *Alert
}

// Billing is the billing and invoices page.
type Billing struct {
	*deps
}

// Load lists invoices. A failed fetch is logged and shows an empty list.
func (b *Billing) Load(ctx context.Context) BillingView {
	decision := guard.Require(ctx, b.sessions)
	if !decision.Proceeds() {
		return BillingView{Decision: decision}
	}

	view := BillingView{Decision: decision, Tiers: PricingTiers}
	if sess, err := b.sessions.Read(ctx); err == nil {
		view.IsAdmin = guard.IsAdmin(sess)
	} else {
		b.logger.WarnContext(ctx, "failed to read session", "error", err)
	}
	view.Invoices = b.fetchInvoices(ctx)
	return view
}

// GenerateInvoice asks the backend for this month's invoice and reloads the
// list on success.
func (b *Billing) GenerateInvoice(ctx context.Context) BillingView {
	view := b.Load(ctx)
	if !view.Decision.Proceeds() {
		return view
	}

	if _, err := b.api.CalculateInvoice(ctx); err != nil {
		b.logger.InfoContext(ctx, "invoice generation rejected", "error", err)
		view.Alert = alertFor(invoiceFailureMessage(err))
		return view
	}

	view.Alert = alertFor(MsgInvoiceGenerated)
	view.Invoices = b.fetchInvoices(ctx)
	return view
}

func invoiceFailureMessage(err error) string {
	switch domainerrors.Classify(err) {
	case domainerrors.CodePermission:
		return MsgAdminsOnly
	case domainerrors.CodeValidation:
		return serverMessageOr(err, MsgInvoiceFailed)
	default:
		return MsgInvoiceFailed
	}
}

func (b *Billing) fetchInvoices(ctx context.Context) []models.Invoice {
	invoices, err := b.api.GetInvoices(ctx)
	if err != nil {
		b.logger.ErrorContext(ctx, "error fetching invoices", "error", err)
		return nil
	}
	return invoices
}
