package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	StartBackend(limit int64) error
	SeedDemo(ctx context.Context) error
	BearerFor(ctx context.Context, name string) string
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	ResponseContains(text string) bool
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background steps
	ctx.Step(`^the billing backend is running$`, steps.backendIsRunning)
	ctx.Step(`^the billing backend is running with a monthly limit of (\d+) calls$`, steps.backendIsRunningWithLimit)
	ctx.Step(`^the demo tenant is seeded$`, steps.demoTenantIsSeeded)

	// Raw API steps
	ctx.Step(`^I GET "([^"]*)" without authorization$`, steps.getWithoutAuth)
	ctx.Step(`^I GET "([^"]*)" as "([^"]*)"$`, steps.getAs)
	ctx.Step(`^I POST to "([^"]*)" with empty body$`, steps.postWithEmptyBody)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should contain "([^"]*)"$`, steps.responseFieldShouldContain)
	ctx.Step(`^the response data field "([^"]*)" should equal "([^"]*)"$`, steps.responseDataFieldShouldEqual)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) backendIsRunning(ctx context.Context) error {
	return s.tc.StartBackend(100000)
}

func (s *commonSteps) backendIsRunningWithLimit(ctx context.Context, limit int) error {
	return s.tc.StartBackend(int64(limit))
}

func (s *commonSteps) demoTenantIsSeeded(ctx context.Context) error {
	return s.tc.SeedDemo(ctx)
}

func (s *commonSteps) getWithoutAuth(ctx context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) getAs(ctx context.Context, path, name string) error {
	token := s.tc.BearerFor(ctx, name)
	if token == "" {
		return fmt.Errorf("%s is not signed in", name)
	}
	return s.tc.GET(path, map[string]string{"Authorization": "Bearer " + token})
}

func (s *commonSteps) postWithEmptyBody(ctx context.Context, path string) error {
	return s.tc.POST(path, map[string]interface{}{})
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d but got %d: %s", expected, got, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseShouldContain(ctx context.Context, text string) error {
	if !s.tc.ResponseContains(text) {
		return fmt.Errorf("response does not contain %q: %s", text, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	actualValue, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(actualValue) != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actualValue)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldContain(ctx context.Context, field, expectedSubstring string) error {
	actualValue, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if !strings.Contains(fmt.Sprint(actualValue), expectedSubstring) {
		return fmt.Errorf("field %s: expected to contain %s but got %v", field, expectedSubstring, actualValue)
	}
	return nil
}

func (s *commonSteps) responseDataFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	raw, err := s.tc.GetResponseField("data")
	if err != nil {
		return err
	}
	data, ok := raw.(map[string]interface{})
	if !ok {
		return fmt.Errorf("response data is not an object: %v", raw)
	}
	actualValue, ok := data[field]
	if !ok {
		return fmt.Errorf("field data.%s not found in response", field)
	}
	if fmt.Sprint(actualValue) != expectedValue {
		return fmt.Errorf("field data.%s: expected %s but got %v", field, expectedValue, actualValue)
	}
	return nil
}
