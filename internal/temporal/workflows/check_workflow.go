package workflows

import (
	"time"

	"github.com/stanstork/agrotrack-api/internal/temporal"
	"github.com/stanstork/agrotrack-api/internal/temporal/activities"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// AlertCheckWorkflow runs one guarded alert check: status recalculation
// followed by notification dispatch. It is started with a cron schedule for deployments
// that have no foreground client driving the worker.
func AlertCheckWorkflow(ctx workflow.Context, params temporal.CheckParams) (temporal.CheckResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval: 10 * time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting alert check workflow", "ForceEmail", params.ForceEmail)

	var a *activities.Activities

	var result temporal.CheckResult
	if err := workflow.ExecuteActivity(ctx, a.DispatchActivity, params).Get(ctx, &result); err != nil {
		logger.Error("Alert dispatch failed.", "error", err)
		return temporal.CheckResult{}, err
	}

	logger.Info("Alert check workflow completed", "Notified", len(result.Report.Notified), "Skipped", result.Skipped)
	return result, nil
}
