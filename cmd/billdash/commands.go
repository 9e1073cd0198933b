package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"billdash/internal/dashboard"
	"billdash/internal/guard"
	"billdash/internal/models"
	"billdash/internal/session"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitRedirect = 2
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) int
}

var commands = []command{
	{"home", "show the landing page", runHome},
	{"register", "create a tenant and its admin account", runRegister},
	{"login", "sign in", runLogin},
	{"logout", "sign out and forget the session", runLogout},
	{"whoami", "show the stored session", runWhoami},
	{"dashboard", "show tenant and current usage", runDashboard},
	{"test-call", "make one metered API call", runTestCall},
	{"usage", "show usage and monthly history", runUsage},
	{"billing", "list invoices and pricing tiers", runBilling},
	{"generate-invoice", "bill the current month (admins only)", runGenerateInvoice},
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: billdash <command> [flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-18s %s\n", c.name, c.summary)
	}
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parseFlags parses args into fs. On failure it returns the exit code the
// command should end with: 0 for -h, 1 for anything else.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	err := fs.Parse(args)
	switch {
	case err == nil:
		return exitOK, true
	case errors.Is(err, flag.ErrHelp):
		return exitOK, false
	default:
		return exitFailure, false
	}
}

// redirect reports a guard decision that did not proceed.
func redirect(a *app, d guard.Decision) int {
	switch d.Location {
	case guard.RouteLogin:
		fmt.Fprintln(a.stderr, "Not signed in. Run \"billdash login\" or \"billdash register\" first.")
	case guard.RouteDashboard:
		fmt.Fprintln(a.stderr, "Already signed in. Run \"billdash logout\" to switch accounts.")
	default:
		fmt.Fprintf(a.stderr, "Redirected to %s\n", d.Location)
	}
	return exitRedirect
}

// alertExit prints the alert and maps its level to an exit code.
func alertExit(a *app, alert *dashboard.Alert) int {
	a.printer.Alert(alert)
	if alert != nil && alert.Level == dashboard.LevelDanger {
		return exitFailure
	}
	return exitOK
}

func runHome(ctx context.Context, a *app, _ []string) int {
	a.printer.Landing(a.pages.Landing.Load(ctx))
	return exitOK
}

func runRegister(ctx context.Context, a *app, args []string) int {
	fs := newFlagSet(a, "register")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (read from stdin when empty)")
	tenant := fs.String("tenant", "", "organisation name")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if d := guard.RequireGuest(ctx, a.sessions); !d.Proceeds() {
		return redirect(a, d)
	}
	pw, err := a.passwordOrPrompt(*password)
	if err != nil {
		fmt.Fprintf(a.stderr, "read password: %v\n", err)
		return exitFailure
	}

	res := a.pages.Auth.Register(ctx, models.RegisterRequest{Email: *email, Password: pw, TenantName: *tenant})
	return a.finishSignIn(ctx, res)
}

func runLogin(ctx context.Context, a *app, args []string) int {
	fs := newFlagSet(a, "login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (read from stdin when empty)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if d := guard.RequireGuest(ctx, a.sessions); !d.Proceeds() {
		return redirect(a, d)
	}
	pw, err := a.passwordOrPrompt(*password)
	if err != nil {
		fmt.Fprintf(a.stderr, "read password: %v\n", err)
		return exitFailure
	}

	res := a.pages.Auth.Login(ctx, models.LoginRequest{Email: *email, Password: pw})
	return a.finishSignIn(ctx, res)
}

func (a *app) finishSignIn(ctx context.Context, res dashboard.AuthResult) int {
	if res.Alert != nil {
		return alertExit(a, res.Alert)
	}
	a.printer.Dashboard(a.pages.Dashboard.Load(ctx))
	return exitOK
}

// passwordOrPrompt returns the flag value or reads one line from stdin.
func (a *app) passwordOrPrompt(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(a.stderr, "Password: ")
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogout(ctx context.Context, a *app, _ []string) int {
	res, err := a.pages.Auth.Logout(ctx)
	if err != nil {
		fmt.Fprintf(a.stderr, "logout: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(a.stderr, "Signed out. Next: %s\n", res.Decision.Location)
	return exitOK
}

func runWhoami(ctx context.Context, a *app, _ []string) int {
	sess, err := a.sessions.Read(ctx)
	if err != nil {
		fmt.Fprintf(a.stderr, "read session: %v\n", err)
		return exitFailure
	}
	var claims *session.Claims
	if c, err := session.DecodeClaims(sess.Token); err == nil {
		claims = &c
	}
	a.printer.Whoami(sess, claims)
	if !sess.Authenticated() {
		return exitRedirect
	}
	return exitOK
}

func runDashboard(ctx context.Context, a *app, _ []string) int {
	view := a.pages.Dashboard.Load(ctx)
	if !view.Decision.Proceeds() {
		return redirect(a, view.Decision)
	}
	a.printer.Dashboard(view)
	return alertExit(a, view.Alert)
}

func runTestCall(ctx context.Context, a *app, _ []string) int {
	res := a.pages.Dashboard.TestCall(ctx)
	if !res.Decision.Proceeds() {
		return redirect(a, res.Decision)
	}
	if res.Usage != nil {
		a.printer.Usage(res.Usage)
	}
	return alertExit(a, res.Alert)
}

func runUsage(ctx context.Context, a *app, _ []string) int {
	view := a.pages.Usage.Load(ctx)
	if !view.Decision.Proceeds() {
		return redirect(a, view.Decision)
	}
	a.printer.UsagePage(view)
	return exitOK
}

func runBilling(ctx context.Context, a *app, _ []string) int {
	view := a.pages.Billing.Load(ctx)
	if !view.Decision.Proceeds() {
		return redirect(a, view.Decision)
	}
	a.printer.Billing(view)
	return exitOK
}

func runGenerateInvoice(ctx context.Context, a *app, _ []string) int {
	view := a.pages.Billing.GenerateInvoice(ctx)
	if !view.Decision.Proceeds() {
		return redirect(a, view.Decision)
	}
	code := alertExit(a, view.Alert)
	a.printer.Billing(view)
	return code
}
