package activities

import (
	"context"

	"github.com/pkg/errors"
	"go.temporal.io/sdk/activity"

	"github.com/stanstork/agrotrack-api/internal/notification"
	"github.com/stanstork/agrotrack-api/internal/temporal"
	"github.com/stanstork/agrotrack-api/internal/worker"
)

// CheckRunner runs one guarded alert check.
type CheckRunner interface {
	Run(ctx context.Context, trigger worker.Trigger, opts notification.CheckOptions) (notification.Report, error)
}

type Activities struct {
	Checks CheckRunner
}

// DispatchActivity runs a scheduled check through the worker guard, which
// recalculates statuses before dispatching. A check suppressed by the guard
// is reported as skipped rather than failed.
func (a *Activities) DispatchActivity(ctx context.Context, params temporal.CheckParams) (temporal.CheckResult, error) {
	logger := activity.GetLogger(ctx)

	report, err := a.Checks.Run(ctx, worker.TriggerScheduled, notification.CheckOptions{ForceEmail: params.ForceEmail})
	switch {
	case errors.Is(err, worker.ErrCheckInFlight), errors.Is(err, worker.ErrTooSoon):
		logger.Info("Scheduled check skipped", "reason", err.Error())
		return temporal.CheckResult{Skipped: err.Error()}, nil
	case err != nil:
		logger.Error("Scheduled check failed", "error", err)
		return temporal.CheckResult{}, err
	}

	logger.Info("Scheduled check finished", "notified", len(report.Notified), "email_window", report.EmailWindow)
	return temporal.CheckResult{Report: report}, nil
}
