package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	Load(key string) string
}

// RegisterSteps registers evaluation step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &evaluationSteps{tc: tc}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		steps.body = nil
		return ctx, nil
	})

	// Request building steps
	ctx.Step(`^a journey on "([^"]*)" in "([^"]*)" costing "([^"]*)" that arrives (\d+) minutes late$`, steps.journeyArrivingLate)
	ctx.Step(`^the passenger answers "([^"]*)" to "([^"]*)"$`, steps.answerHook)
	ctx.Step(`^the passenger chose refund option "([^"]*)"$`, steps.refundChoice)
	ctx.Step(`^the passenger claims "([^"]*)" for "([^"]*)"$`, steps.claimExpense)
	ctx.Step(`^the disruption was caused by extraordinary circumstances$`, steps.extraordinary)

	// Submission steps
	ctx.Step(`^I submit the evaluation$`, steps.submit)
	ctx.Step(`^I submit a batch with the evaluation and one invalid request$`, steps.submitBatch)
	ctx.Step(`^I fetch the evaluation remembered as "([^"]*)"$`, steps.fetchRemembered)
}

type evaluationSteps struct {
	tc   TestContext
	body map[string]any
}

func (s *evaluationSteps) journeyArrivingLate(_ context.Context, operator, country, price string, minutes int) error {
	scheduled := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	actual := scheduled.Add(time.Duration(minutes) * time.Minute)
	s.body = map[string]any{
		"journey": map[string]any{
			"ticketPrice":    price,
			"isLongDomestic": true,
			"segments": []map[string]any{{
				"operator":           operator,
				"country":            country,
				"from":               "Origin",
				"to":                 "Destination",
				"scheduledDeparture": scheduled.Add(-3 * time.Hour).Format(time.RFC3339),
				"scheduledArrival":   scheduled.Format(time.RFC3339),
				"actualArrival":      actual.Format(time.RFC3339),
				// Unique per scenario run so repeated suite runs do not replay.
				"bookingRef": fmt.Sprintf("E2E%d", time.Now().UnixNano()),
			}},
		},
		"hooks":    map[string]any{},
		"expenses": map[string]any{},
		"compute":  map[string]any{},
	}
	return nil
}

func (s *evaluationSteps) requireBody() error {
	if s.body == nil {
		return fmt.Errorf("no journey defined in this scenario")
	}
	return nil
}

func (s *evaluationSteps) answerHook(_ context.Context, answer, hook string) error {
	if err := s.requireBody(); err != nil {
		return err
	}
	s.body["hooks"].(map[string]any)[hook] = answer
	return nil
}

func (s *evaluationSteps) refundChoice(_ context.Context, choice string) error {
	if err := s.requireBody(); err != nil {
		return err
	}
	s.body["refund"] = map[string]any{"choice": choice}
	return nil
}

func (s *evaluationSteps) claimExpense(_ context.Context, amount, category string) error {
	if err := s.requireBody(); err != nil {
		return err
	}
	s.body["expenses"].(map[string]any)[category] = amount
	return nil
}

func (s *evaluationSteps) extraordinary(_ context.Context) error {
	if err := s.requireBody(); err != nil {
		return err
	}
	s.body["compute"].(map[string]any)["extraordinary"] = true
	return nil
}

func (s *evaluationSteps) submit(_ context.Context) error {
	if err := s.requireBody(); err != nil {
		return err
	}
	return s.tc.POST("/v1/evaluations", s.body)
}

func (s *evaluationSteps) submitBatch(_ context.Context) error {
	if err := s.requireBody(); err != nil {
		return err
	}
	invalid := map[string]any{"journey": map[string]any{"segments": []any{}}}
	return s.tc.POST("/v1/evaluations/batch", map[string]any{
		"requests": []any{s.body, invalid},
	})
}

func (s *evaluationSteps) fetchRemembered(_ context.Context, key string) error {
	id := s.tc.Load(key)
	if id == "" {
		return fmt.Errorf("nothing remembered as %q", key)
	}
	return s.tc.GET("/v1/evaluations/"+id, nil)
}
