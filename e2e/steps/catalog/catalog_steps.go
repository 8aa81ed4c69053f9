package catalog

import (
	"context"
	"net/url"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
}

// RegisterSteps registers catalog step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &catalogSteps{tc: tc}

	ctx.Step(`^I look up the catalog entry for "([^"]*)" operator "([^"]*)"$`, steps.lookupEntry)
	ctx.Step(`^I list the catalog entries for "([^"]*)"$`, steps.listEntries)
	ctx.Step(`^I reload the catalog$`, steps.reload)
}

type catalogSteps struct {
	tc TestContext
}

func (s *catalogSteps) lookupEntry(_ context.Context, country, operator string) error {
	q := url.Values{"country": {country}, "operator": {operator}}
	return s.tc.GET("/v1/catalog/entries?"+q.Encode(), nil)
}

func (s *catalogSteps) listEntries(_ context.Context, country string) error {
	q := url.Values{"country": {country}}
	return s.tc.GET("/v1/catalog/entries?"+q.Encode(), nil)
}

func (s *catalogSteps) reload(_ context.Context) error {
	return s.tc.POST("/v1/catalog/reload", map[string]any{})
}
