package temporal

import (
	"time"

	"github.com/stanstork/agrotrack-api/internal/notification"
)

// TaskQueueName is the Temporal task queue serving scheduled alert checks.
const TaskQueueName = "AGROTRACK_ALERT_CHECKS"

// AlertCheckWorkflowID is the fixed ID of the cron workflow, so restarts reuse the running schedule.
const AlertCheckWorkflowID = "agrotrack-alert-check"

const DefaultActivityTimeout = 2 * time.Minute

// CheckParams is the input of AlertCheckWorkflow.
type CheckParams struct {
	ForceEmail bool
}

// CheckResult is what a scheduled run reports back.
type CheckResult struct {
	Skipped string
	Report  notification.Report
}
