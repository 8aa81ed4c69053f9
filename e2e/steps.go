package e2e

import (
	"github.com/cucumber/godog"

	"railclaim/e2e/steps/catalog"
	"railclaim/e2e/steps/common"
	"railclaim/e2e/steps/evaluation"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (service health, status and field assertions)
	common.RegisterSteps(ctx, tc)

	// Register evaluation steps (journey building, submit, replay, fetch)
	evaluation.RegisterSteps(ctx, tc)

	// Register catalog lookup steps
	catalog.RegisterSteps(ctx, tc)
}
