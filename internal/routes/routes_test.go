package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanstork/agrotrack-api/internal/alerts"
	"github.com/stanstork/agrotrack-api/internal/authz"
	"github.com/stanstork/agrotrack-api/internal/fleet"
	"github.com/stanstork/agrotrack-api/internal/handlers"
	"github.com/stanstork/agrotrack-api/internal/kvstore"
	"github.com/stanstork/agrotrack-api/internal/notification"
	"github.com/stanstork/agrotrack-api/internal/repository"
	"github.com/stanstork/agrotrack-api/internal/worker"
)

const secret = "router-secret"

type fakeRunner struct {
	foreground bool
	forced     []bool
	err        error
}

func (f *fakeRunner) Foreground()          { f.foreground = true }
func (f *fakeRunner) Background()          { f.foreground = false }
func (f *fakeRunner) IsForeground() bool   { return f.foreground }
func (f *fakeRunner) LastCheck() time.Time { return time.Time{} }
func (f *fakeRunner) ForceCheck(ctx context.Context, forceEmail bool) (notification.Report, error) {
	f.forced = append(f.forced, forceEmail)
	if f.err != nil {
		return notification.Report{}, f.err
	}
	return notification.Report{Notified: []string{"tank:diesel"}, EmailWindow: forceEmail}, nil
}

type server struct {
	t      *testing.T
	router http.Handler
	token  string
	runner *fakeRunner
}

func newServer(t *testing.T) *server {
	t.Helper()
	logger := zerolog.Nop()
	store := kvstore.NewMemoryStore()
	alertRepo := repository.NewAlertRepository(store)
	machineRepo := repository.NewMachineRepository(store)

	svc := fleet.NewService(fleet.ServiceConfig{
		Machines:     machineRepo,
		Maintenances: repository.NewMaintenanceRepository(store),
		Alerts:       alertRepo,
		Tanks:        repository.NewTankRepository(store),
		Refuelings:   repository.NewRefuelingRepository(store),
		Recalculator: alerts.NewRecalculator(alertRepo, machineRepo, logger),
	}, logger)

	history := notification.NewHistoryStore(store, time.UTC, logger)
	require.NoError(t, history.MarkNotified(context.Background(), "tank:diesel"))

	runner := &fakeRunner{}
	router := NewRouter(secret,
		handlers.NewFleetHandler(svc, logger),
		handlers.NewSettingsHandler(repository.NewSettingsRepository(store), logger),
		handlers.NewCheckHandler(runner, logger),
		handlers.NewReportHandler(svc, logger),
		handlers.NewNotificationHandler(history, logger),
	)

	token, err := authz.IssueToken(secret, "tablet-01", "", time.Hour)
	require.NoError(t, err)
	return &server{t: t, router: router, token: token, runner: runner}
}

func (s *server) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestHealthIsPublic(t *testing.T) {
	s := newServer(t)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPIRequiresToken(t *testing.T) {
	s := newServer(t)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/machines", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMachineMaintenanceFlow(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/api/machines", map[string]interface{}{
		"name": "Case IH Puma", "type": "tractor", "meter": 1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var machine struct {
		ID string `json:"id"`
	}
	decode(t, rec, &machine)

	rec = s.do(http.MethodPost, "/api/machines/"+machine.ID+"/maintenances", map[string]interface{}{
		"meter":     1000,
		"items":     []string{"oil"},
		"intervals": []map[string]interface{}{{"item": "oil", "interval": 250}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Maintenance struct {
			ID string `json:"id"`
		} `json:"maintenance"`
	}
	decode(t, rec, &created)

	rec = s.do(http.MethodPut, "/api/machines/"+machine.ID+"/meter", map[string]interface{}{"meter": 1245})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/alerts?status=yellow", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Alerts []struct {
			Item   string `json:"item"`
			Status string `json:"status"`
		} `json:"alerts"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Alerts, 1)
	assert.Equal(t, "oil", list.Alerts[0].Item)

	rec = s.do(http.MethodPut, "/api/machines/"+machine.ID+"/meter", map[string]interface{}{"meter": 900})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodDelete, "/api/maintenances/"+created.Maintenance.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/alerts", nil)
	decode(t, rec, &list)
	assert.Empty(t, list.Alerts)
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPut, "/api/machines/missing/meter", map[string]interface{}{"meter": 10})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/machines", map[string]interface{}{"name": "", "type": "tractor"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/machines", map[string]interface{}{"nope": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTankStatusIsReported(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPut, "/api/tanks/diesel", map[string]interface{}{
		"name": "Diesel", "capacity": 5000, "current_level": 900, "alert_threshold": 500,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tank struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, rec, &tank)
	assert.Equal(t, "diesel", tank.ID)
	assert.Equal(t, "yellow", tank.Status)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPut, "/api/settings/notification-emails", map[string]interface{}{
		"emails": []string{" Ops@farm.example ", "ops@farm.example", "vet@farm.example"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/settings", nil)
	var settings struct {
		NotificationEmails []string `json:"notification_emails"`
	}
	decode(t, rec, &settings)
	assert.Len(t, settings.NotificationEmails, 2)
}

func TestLifecycleAndForceCheck(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/api/lifecycle/foreground", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, s.runner.foreground)

	rec = s.do(http.MethodPost, "/api/lifecycle/background", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, s.runner.foreground)

	rec = s.do(http.MethodPost, "/api/checks/force?email=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report notification.Report
	decode(t, rec, &report)
	assert.Equal(t, []string{"tank:diesel"}, report.Notified)
	assert.Equal(t, []bool{true}, s.runner.forced)

	rec = s.do(http.MethodPost, "/api/checks/force?email=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.runner.err = worker.ErrCheckInFlight
	rec = s.do(http.MethodPost, "/api/checks/force", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFleetReportAndNotificationHistory(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/api/machines", map[string]interface{}{"name": "Scania R450", "type": "truck", "meter": 120000})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/api/reports/fleet", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stat struct {
		Machines   int `json:"machines"`
		PerMachine []struct {
			Unit string `json:"unit"`
		} `json:"per_machine"`
	}
	decode(t, rec, &stat)
	assert.Equal(t, 1, stat.Machines)
	require.Len(t, stat.PerMachine, 1)
	assert.Equal(t, "km", stat.PerMachine[0].Unit)

	rec = s.do(http.MethodGet, "/api/notifications?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Notifications []struct {
			AlertID string `json:"alert_id"`
		} `json:"notifications"`
	}
	decode(t, rec, &history)
	require.Len(t, history.Notifications, 1)
	assert.Equal(t, "tank:diesel", history.Notifications[0].AlertID)
}

func TestPropertyTokenSeesOnlyItsMachines(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/api/machines", map[string]interface{}{
		"name": "John Deere 6R", "type": "tractor", "meter": 500, "property_id": "north",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var other struct {
		ID string `json:"id"`
	}
	decode(t, rec, &other)

	rec = s.do(http.MethodPost, "/api/machines/"+other.ID+"/maintenances", map[string]interface{}{
		"meter":     500,
		"items":     []string{"oil"},
		"intervals": []map[string]interface{}{{"item": "oil", "interval": 250}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var otherMaintenance struct {
		Maintenance struct {
			ID string `json:"id"`
		} `json:"maintenance"`
	}
	decode(t, rec, &otherMaintenance)

	token, err := authz.IssueToken(secret, "tablet-south", "south", time.Hour)
	require.NoError(t, err)
	s.token = token

	rec = s.do(http.MethodPost, "/api/machines", map[string]interface{}{
		"name": "Fendt 724", "type": "tractor", "meter": 100, "property_id": "north",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var own struct {
		ID         string `json:"id"`
		PropertyID string `json:"property_id"`
	}
	decode(t, rec, &own)
	assert.Equal(t, "south", own.PropertyID)

	rec = s.do(http.MethodGet, "/api/machines", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var machines struct {
		Machines []struct {
			ID string `json:"id"`
		} `json:"machines"`
	}
	decode(t, rec, &machines)
	require.Len(t, machines.Machines, 1)
	assert.Equal(t, own.ID, machines.Machines[0].ID)

	rec = s.do(http.MethodGet, "/api/alerts", nil)
	var list struct {
		Alerts []json.RawMessage `json:"alerts"`
	}
	decode(t, rec, &list)
	assert.Empty(t, list.Alerts)

	rec = s.do(http.MethodPut, "/api/machines/"+other.ID+"/meter", map[string]interface{}{"meter": 900})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodPost, "/api/machines/"+other.ID+"/refuelings", map[string]interface{}{"tank_id": "diesel", "liters": 10})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodDelete, "/api/maintenances/"+otherMaintenance.Maintenance.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodDelete, "/api/machines/"+other.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, "/api/machines/"+own.ID+"/meter", map[string]interface{}{"meter": 150})
	assert.Equal(t, http.StatusOK, rec.Code)
}
