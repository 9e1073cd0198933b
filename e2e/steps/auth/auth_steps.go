package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/cucumber/godog"

	"billdash/internal/dashboard"
	"billdash/internal/models"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	PagesFor(name string) *dashboard.Pages
	CurrentPages() *dashboard.Pages
	RecordAlert(alert *dashboard.Alert)
	GetLastAlert() *dashboard.Alert
	RecordLocation(location string)
	GetLastLocation() string
}

// RegisterSteps registers authentication-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	// Sign-in steps
	ctx.Step(`^"([^"]*)" registers tenant "([^"]*)" with email "([^"]*)" and password "([^"]*)"$`, steps.register)
	ctx.Step(`^"([^"]*)" logs in with email "([^"]*)" and password "([^"]*)"$`, steps.login)
	ctx.Step(`^"([^"]*)" is signed in as "([^"]*)" with password "([^"]*)"$`, steps.signedIn)
	ctx.Step(`^"([^"]*)" logs out$`, steps.logout)
	ctx.Step(`^(\d+) users register tenant "([^"]*)" concurrently with email "([^"]*)"$`, steps.registerConcurrently)

	// Navigation steps
	ctx.Step(`^"([^"]*)" opens the dashboard$`, steps.opensDashboard)

	// Assertion steps
	ctx.Step(`^the user should be redirected to "([^"]*)"$`, steps.shouldBeRedirectedTo)
	ctx.Step(`^the dashboard should render$`, steps.dashboardShouldRender)
	ctx.Step(`^the dashboard should show tenant "([^"]*)"$`, steps.dashboardShouldShowTenant)
	ctx.Step(`^the landing page should offer "([^"]*)"$`, steps.landingShouldOffer)
	ctx.Step(`^the alert should say "([^"]*)"$`, steps.alertShouldSay)
	ctx.Step(`^there should be no alert$`, steps.thereShouldBeNoAlert)
	ctx.Step(`^exactly (\d+) of the registrations should succeed$`, steps.exactlyNRegistrationsSucceed)
}

type authSteps struct {
	tc        TestContext
	succeeded int
}

func (s *authSteps) register(ctx context.Context, name, tenant, email, password string) error {
	res := s.tc.PagesFor(name).Auth.Register(ctx, models.RegisterRequest{Email: email, Password: password, TenantName: tenant})
	s.tc.RecordAlert(res.Alert)
	s.tc.RecordLocation(res.Decision.Location)
	return nil
}

func (s *authSteps) login(ctx context.Context, name, email, password string) error {
	res := s.tc.PagesFor(name).Auth.Login(ctx, models.LoginRequest{Email: email, Password: password})
	s.tc.RecordAlert(res.Alert)
	s.tc.RecordLocation(res.Decision.Location)
	return nil
}

func (s *authSteps) signedIn(ctx context.Context, name, email, password string) error {
	res := s.tc.PagesFor(name).Auth.Login(ctx, models.LoginRequest{Email: email, Password: password})
	if res.Alert != nil {
		return fmt.Errorf("sign in as %s failed: %s", email, res.Alert.Text)
	}
	return nil
}

func (s *authSteps) logout(ctx context.Context, name string) error {
	res, err := s.tc.PagesFor(name).Auth.Logout(ctx)
	if err != nil {
		return err
	}
	s.tc.RecordLocation(res.Decision.Location)
	return nil
}

func (s *authSteps) registerConcurrently(ctx context.Context, n int, tenant, email string) error {
	pages := make([]*dashboard.Pages, n)
	for i := range pages {
		pages[i] = s.tc.PagesFor(fmt.Sprintf("racer-%d", i))
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	s.succeeded = 0
	for _, p := range pages {
		wg.Add(1)
		go func(p *dashboard.Pages) {
			defer wg.Done()
			res := p.Auth.Register(ctx, models.RegisterRequest{Email: email, Password: "secret1", TenantName: tenant})
			if res.Alert == nil {
				mu.Lock()
				s.succeeded++
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()
	return nil
}

func (s *authSteps) opensDashboard(ctx context.Context, name string) error {
	view := s.tc.PagesFor(name).Dashboard.Load(ctx)
	s.tc.RecordLocation(view.Decision.Location)
	s.tc.RecordAlert(view.Alert)
	return nil
}

func (s *authSteps) shouldBeRedirectedTo(ctx context.Context, location string) error {
	if got := s.tc.GetLastLocation(); got != location {
		return fmt.Errorf("expected redirect to %q but got %q", location, got)
	}
	return nil
}

func (s *authSteps) dashboardShouldRender(ctx context.Context) error {
	if loc := s.tc.GetLastLocation(); loc != "" {
		return fmt.Errorf("expected the dashboard to render but was redirected to %q", loc)
	}
	return nil
}

func (s *authSteps) dashboardShouldShowTenant(ctx context.Context, name string) error {
	view := s.tc.CurrentPages().Dashboard.Load(ctx)
	if view.Tenant == nil {
		return fmt.Errorf("tenant panel is empty")
	}
	if view.Tenant.Name != name {
		return fmt.Errorf("expected tenant %q but got %q", name, view.Tenant.Name)
	}
	return nil
}

func (s *authSteps) landingShouldOffer(ctx context.Context, label string) error {
	view := s.tc.CurrentPages().Landing.Load(ctx)
	for _, l := range view.Links {
		if l.Label == label {
			return nil
		}
	}
	return fmt.Errorf("landing page does not offer %q: %+v", label, view.Links)
}

func (s *authSteps) alertShouldSay(ctx context.Context, text string) error {
	alert := s.tc.GetLastAlert()
	if alert == nil {
		return fmt.Errorf("expected alert %q but there was none", text)
	}
	if alert.Text != text {
		return fmt.Errorf("expected alert %q but got %q", text, alert.Text)
	}
	return nil
}

func (s *authSteps) thereShouldBeNoAlert(ctx context.Context) error {
	if alert := s.tc.GetLastAlert(); alert != nil {
		return fmt.Errorf("unexpected %s alert: %s", alert.Level, alert.Text)
	}
	return nil
}

func (s *authSteps) exactlyNRegistrationsSucceed(ctx context.Context, n int) error {
	if s.succeeded != n {
		return fmt.Errorf("expected %d successful registrations but got %d", n, s.succeeded)
	}
	return nil
}
