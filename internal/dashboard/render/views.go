package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"billdash/internal/dashboard"
	"billdash/internal/models"
	"billdash/internal/session"
)

// Printer writes views to a terminal or file.
type Printer struct {
	w     io.Writer
	color bool
}

// New returns a printer on w. Color adds ANSI colours to alerts.
func New(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) table(write func(tw *tabwriter.Writer)) {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	write(tw)
	_ = tw.Flush()
}

// Alert prints an inline alert; nil prints nothing.
func (p *Printer) Alert(a *dashboard.Alert) {
	if a == nil {
		return
	}
	prefix := "[" + strings.ToUpper(string(a.Level)) + "]"
	if p.color {
		code := "32"
		if a.Level == dashboard.LevelDanger {
			code = "31"
		}
		prefix = "\x1b[" + code + "m" + prefix + "\x1b[0m"
	}
	p.printf("%s %s\n", prefix, a.Text)
}

// Landing prints the front page navigation.
func (p *Printer) Landing(v dashboard.LandingView) {
	p.printf("Multi-Tenant SaaS Billing API\n\n")
	if v.SignedIn && v.User != nil {
		p.printf("Signed in as %s\n\n", v.User.Email)
	}
	for _, l := range v.Links {
		p.printf("  %-12s %s\n", l.Label, l.Route)
	}
}

// Dashboard prints the tenant card and usage meter. Missing panels are
// reported as unavailable.
func (p *Printer) Dashboard(v dashboard.DashboardView) {
	if v.User != nil {
		p.printf("Welcome, %s\n\n", v.User.Email)
	}

	p.printf("Tenant\n")
	if t := v.Tenant; t != nil {
		p.printf("  Name:    %s\n", t.Name)
		p.printf("  Plan:    %s\n", OrDash(t.Plan))
		p.printf("  Status:  %s\n", OrDash(t.Status))
		p.printf("  Created: %s\n", Date(t.CreatedAt))
	} else {
		p.printf("  unavailable\n")
	}

	p.printf("\n")
	p.Usage(v.Usage)
}

// Usage prints the usage meter for a snapshot.
func (p *Printer) Usage(u *models.UsageSnapshot) {
	if u == nil {
		p.printf("API Usage\n  unavailable\n")
		return
	}
	p.printf("API Usage (%s)\n", u.Month)
	p.printf("  Used:      %s / %s  %s\n", Int(u.Used), Int(u.Limit), Percent(u.PercentageUsed))
	p.printf("  %s\n", Bar(u.PercentageUsed.Value, 30, dashboard.UsageLevel(u)))
	p.printf("  Remaining: %s calls\n", Int(u.Remaining))
}

// UsagePage prints the meter, an optional warning and the history table.
func (p *Printer) UsagePage(v dashboard.UsageView) {
	p.Usage(v.Usage)
	if v.Warning != nil {
		p.printf("\n")
		p.Alert(v.Warning)
	}

	p.printf("\nUsage History\n")
	if len(v.History) == 0 {
		p.printf("  No usage history available.\n")
		return
	}
	p.table(func(tw *tabwriter.Writer) {
		_, _ = fmt.Fprintln(tw, "  MONTH\tAPI CALLS\tLAST UPDATED")
		for _, h := range v.History {
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", h.Month, Int(h.APICallCount), Date(h.LastUpdated))
		}
	})
}

// Billing prints the pricing tiers and invoice history.
func (p *Printer) Billing(v dashboard.BillingView) {
	p.Alert(v.Alert)

	p.printf("Pricing Tiers\n")
	p.table(func(tw *tabwriter.Writer) {
		for _, t := range v.Tiers {
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", t.Name, t.Range, t.Price)
		}
	})

	p.printf("\nInvoice History\n")
	if len(v.Invoices) == 0 {
		p.printf("  No invoices generated yet.\n")
	} else {
		p.table(func(tw *tabwriter.Writer) {
			_, _ = fmt.Fprintln(tw, "  MONTH\tAPI CALLS\tAMOUNT DUE\tSTATUS\tINVOICE ID\tDATE")
			for _, inv := range v.Invoices {
				_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
					inv.Month, Int(inv.TotalCalls), Money(inv.AmountDue),
					inv.Status, OrDash(inv.StripeInvoiceID), Date(inv.CreatedAt))
			}
		})
	}

	if v.IsAdmin {
		p.printf("\nRun \"billdash generate-invoice\" to bill the current month.\n")
	}
}

// Whoami prints the stored session and, when decodable, the token claims.
func (p *Printer) Whoami(sess session.Session, claims *session.Claims) {
	if !sess.Authenticated() {
		p.printf("Not signed in.\n")
		return
	}
	if u := sess.User; u != nil {
		p.printf("User:    %s (%s)\n", u.Email, OrDash(u.Role))
	} else {
		p.printf("User:    -\n")
	}
	if t := sess.Tenant; t != nil {
		p.printf("Tenant:  %s (%s)\n", t.Name, OrDash(t.Plan))
	} else {
		p.printf("Tenant:  -\n")
	}
	if claims != nil && claims.ExpiresAt != nil {
		p.printf("Expires: %s (%s)\n", claims.ExpiresAt.Format("2006-01-02 15:04"), Relative(claims.ExpiresAt))
	}
}

// Bar draws a fixed-width usage meter. Values outside 0..100 are clamped.
func Bar(percent float64, width int, level dashboard.Level) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	mark := "#"
	if level == dashboard.LevelDanger {
		mark = "!"
	}
	return "[" + strings.Repeat(mark, filled) + strings.Repeat(".", width-filled) + "]"
}
