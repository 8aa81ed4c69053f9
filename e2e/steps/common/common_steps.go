package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	Status() int
	ResponseFieldString(field string) (string, error)
	Save(key, value string)
	Load(key string) string
}

// RegisterSteps registers the generic request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the railclaim service is healthy$`, steps.serviceIsHealthy)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should exist$`, steps.responseFieldShouldExist)
	ctx.Step(`^I remember the response field "([^"]*)" as "([^"]*)"$`, steps.rememberField)
	ctx.Step(`^the response field "([^"]*)" should equal the remembered "([^"]*)"$`, steps.responseFieldShouldEqualRemembered)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsHealthy(ctx context.Context) error {
	if err := s.tc.GET("/healthz", nil); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, 200)
}

func (s *commonSteps) responseStatusShouldBe(_ context.Context, status int) error {
	if got := s.tc.Status(); got != status {
		return fmt.Errorf("expected status %d, got %d", status, got)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBe(_ context.Context, field, want string) error {
	got, err := s.tc.ResponseFieldString(field)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("field %q: expected %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldExist(_ context.Context, field string) error {
	_, err := s.tc.ResponseFieldString(field)
	return err
}

func (s *commonSteps) rememberField(_ context.Context, field, key string) error {
	v, err := s.tc.ResponseFieldString(field)
	if err != nil {
		return err
	}
	s.tc.Save(key, v)
	return nil
}

func (s *commonSteps) responseFieldShouldEqualRemembered(ctx context.Context, field, key string) error {
	return s.responseFieldShouldBe(ctx, field, s.tc.Load(key))
}
