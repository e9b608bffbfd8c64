package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/alerts"
	"github.com/stanstork/agrotrack-api/internal/authz"
	"github.com/stanstork/agrotrack-api/internal/fleet"
	"github.com/stanstork/agrotrack-api/internal/models"
)

// FleetService is the subset of fleet.Service the HTTP layer drives.
type FleetService interface {
	ListMachines(ctx context.Context, propertyID string) ([]models.Machine, error)
	CreateMachine(ctx context.Context, in fleet.CreateMachineInput) (models.Machine, error)
	UpdateMeter(ctx context.Context, machineID string, meter float64) (models.Machine, error)
	DeleteMachine(ctx context.Context, machineID string) error
	RecordMaintenance(ctx context.Context, machineID string, in fleet.MaintenanceInput) (models.Maintenance, []models.Alert, error)
	DeleteMaintenance(ctx context.Context, id string) error
	RecordRefueling(ctx context.Context, machineID string, in fleet.RefuelingInput) (models.Refueling, error)
	ListAlerts(ctx context.Context, propertyID string) ([]models.Alert, error)
	CheckMachineAccess(ctx context.Context, machineID, propertyID string) error
	CheckMaintenanceAccess(ctx context.Context, maintenanceID, propertyID string) error
	ListTanks(ctx context.Context) ([]models.Tank, error)
	UpsertTank(ctx context.Context, tank models.Tank) (models.Tank, error)
	Stats(ctx context.Context) (models.FleetStat, error)
}

type FleetHandler struct {
	service FleetService
	logger  zerolog.Logger
}

func NewFleetHandler(service FleetService, logger zerolog.Logger) *FleetHandler {
	return &FleetHandler{
		service: service,
		logger:  logger.With().Str("handler", "fleet").Logger(),
	}
}

func pathID(r *http.Request, name string) string {
	return strings.TrimSpace(mux.Vars(r)[name])
}

// propertyScope is the property the request token is limited to, or "" for
// tokens that see the whole fleet.
func propertyScope(r *http.Request) string {
	pid, _ := authz.PropertyIDFromRequest(r)
	return pid
}

// machineFromPath resolves the machine in the route and reports 404 when it
// belongs to another property.
func (h *FleetHandler) machineFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := pathID(r, "machineID")
	if err := h.service.CheckMachineAccess(r.Context(), id, propertyScope(r)); err != nil {
		writeError(w, h.logger, err, "Failed to load machine")
		return "", false
	}
	return id, true
}

func (h *FleetHandler) ListMachines(w http.ResponseWriter, r *http.Request) {
	machines, err := h.service.ListMachines(r.Context(), propertyScope(r))
	if err != nil {
		writeError(w, h.logger, err, "Failed to list machines")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"machines": machines})
}

func (h *FleetHandler) CreateMachine(w http.ResponseWriter, r *http.Request) {
	var req fleet.CreateMachineInput
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if pid := propertyScope(r); pid != "" {
		req.PropertyID = pid
	}
	machine, err := h.service.CreateMachine(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to create machine")
		return
	}
	writeJSON(w, http.StatusCreated, machine)
}

func (h *FleetHandler) UpdateMeter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Meter *float64 `json:"meter"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Meter == nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id, ok := h.machineFromPath(w, r)
	if !ok {
		return
	}
	machine, err := h.service.UpdateMeter(r.Context(), id, *req.Meter)
	if err != nil {
		writeError(w, h.logger, err, "Failed to update meter")
		return
	}
	writeJSON(w, http.StatusOK, machine)
}

func (h *FleetHandler) DeleteMachine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.machineFromPath(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteMachine(r.Context(), id); err != nil {
		writeError(w, h.logger, err, "Failed to delete machine")
		return
	}
	subject, _ := authz.SubjectFromRequest(r)
	h.logger.Info().Str("machine_id", id).Str("subject", subject).Msg("machine deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *FleetHandler) RecordMaintenance(w http.ResponseWriter, r *http.Request) {
	var req fleet.MaintenanceInput
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id, ok := h.machineFromPath(w, r)
	if !ok {
		return
	}
	maintenance, created, err := h.service.RecordMaintenance(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to record maintenance")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"maintenance": maintenance,
		"alerts":      created,
	})
}

func (h *FleetHandler) DeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "maintenanceID")
	if err := h.service.CheckMaintenanceAccess(r.Context(), id, propertyScope(r)); err != nil {
		writeError(w, h.logger, err, "Failed to load maintenance")
		return
	}
	if err := h.service.DeleteMaintenance(r.Context(), id); err != nil {
		writeError(w, h.logger, err, "Failed to delete maintenance")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FleetHandler) RecordRefueling(w http.ResponseWriter, r *http.Request) {
	var req fleet.RefuelingInput
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id, ok := h.machineFromPath(w, r)
	if !ok {
		return
	}
	refueling, err := h.service.RecordRefueling(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to record refueling")
		return
	}
	writeJSON(w, http.StatusCreated, refueling)
}

func (h *FleetHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAlerts(r.Context(), propertyScope(r))
	if err != nil {
		writeError(w, h.logger, err, "Failed to list alerts")
		return
	}
	if status := models.AlertStatus(r.URL.Query().Get("status")); status != "" {
		filtered := make([]models.Alert, 0, len(list))
		for _, a := range list {
			if a.Status == status {
				filtered = append(filtered, a)
			}
		}
		list = filtered
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": list})
}

type tankView struct {
	models.Tank
	Status models.AlertStatus `json:"status"`
}

func (h *FleetHandler) ListTanks(w http.ResponseWriter, r *http.Request) {
	tanks, err := h.service.ListTanks(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "Failed to list tanks")
		return
	}
	views := make([]tankView, 0, len(tanks))
	for _, t := range tanks {
		views = append(views, tankView{Tank: t, Status: alerts.TankStatus(t)})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tanks": views})
}

func (h *FleetHandler) UpsertTank(w http.ResponseWriter, r *http.Request) {
	var tank models.Tank
	if err := decodeJSON(r, &tank); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	tank.ID = pathID(r, "tankID")
	saved, err := h.service.UpsertTank(r.Context(), tank)
	if err != nil {
		writeError(w, h.logger, err, "Failed to save tank")
		return
	}
	writeJSON(w, http.StatusOK, tankView{Tank: saved, Status: alerts.TankStatus(saved)})
}
