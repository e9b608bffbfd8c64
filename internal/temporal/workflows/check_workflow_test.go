package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/stanstork/agrotrack-api/internal/notification"
	"github.com/stanstork/agrotrack-api/internal/temporal"
	"github.com/stanstork/agrotrack-api/internal/temporal/activities"
	"github.com/stanstork/agrotrack-api/internal/worker"
)

type stubChecks struct {
	triggers []worker.Trigger
	opts     []notification.CheckOptions
	report   notification.Report
	err      error
}

func (s *stubChecks) Run(ctx context.Context, trigger worker.Trigger, opts notification.CheckOptions) (notification.Report, error) {
	s.triggers = append(s.triggers, trigger)
	s.opts = append(s.opts, opts)
	return s.report, s.err
}

func runWorkflow(t *testing.T, acts *activities.Activities, params temporal.CheckParams) (temporal.CheckResult, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(acts)
	env.ExecuteWorkflow(AlertCheckWorkflow, params)
	require.True(t, env.IsWorkflowCompleted())
	if err := env.GetWorkflowError(); err != nil {
		return temporal.CheckResult{}, err
	}
	var result temporal.CheckResult
	require.NoError(t, env.GetWorkflowResult(&result))
	return result, nil
}

func TestAlertCheckWorkflowDispatchesScheduledCheck(t *testing.T) {
	checks := &stubChecks{report: notification.Report{Notified: []string{"a1", "tank:t1"}}}
	acts := &activities.Activities{Checks: checks}

	result, err := runWorkflow(t, acts, temporal.CheckParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "tank:t1"}, result.Report.Notified)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, []worker.Trigger{worker.TriggerScheduled}, checks.triggers)
}

func TestAlertCheckWorkflowReportsGuardSkip(t *testing.T) {
	checks := &stubChecks{err: worker.ErrTooSoon}
	acts := &activities.Activities{Checks: checks}

	result, err := runWorkflow(t, acts, temporal.CheckParams{})
	require.NoError(t, err)
	assert.Equal(t, worker.ErrTooSoon.Error(), result.Skipped)
}

func TestAlertCheckWorkflowPassesForceEmail(t *testing.T) {
	checks := &stubChecks{}
	acts := &activities.Activities{Checks: checks}

	_, err := runWorkflow(t, acts, temporal.CheckParams{ForceEmail: true})
	require.NoError(t, err)
	require.Len(t, checks.opts, 1, "the check runs once per workflow")
	assert.True(t, checks.opts[0].ForceEmail)
}

func TestAlertCheckWorkflowFailsOnDispatchError(t *testing.T) {
	checks := &stubChecks{err: errors.New("store offline")}
	acts := &activities.Activities{Checks: checks}

	_, err := runWorkflow(t, acts, temporal.CheckParams{})
	assert.Error(t, err)
}
