// Package fleet holds the record-keeping operations that move machine meters
// and tank levels, and keeps maintenance alerts in step with them.
package fleet

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/alerts"
	"github.com/stanstork/agrotrack-api/internal/models"
	"github.com/stanstork/agrotrack-api/internal/repository"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrMeterRegression = errors.New("meter reading is below the current meter")
)

type Recalculator interface {
	Recalculate(ctx context.Context) (int, error)
}

type CreateMachineInput struct {
	PropertyID string             `json:"property_id"`
	Name       string             `json:"name"`
	Type       models.MachineType `json:"type"`
	Meter      float64            `json:"meter"`
}

type MaintenanceInput struct {
	Meter     float64                      `json:"meter"`
	Items     []string                     `json:"items"`
	Notes     string                       `json:"notes"`
	Intervals []models.MaintenanceInterval `json:"intervals"`
}

type RefuelingInput struct {
	TankID string  `json:"tank_id"`
	Liters float64 `json:"liters"`
	Meter  float64 `json:"meter"`
}

type Service struct {
	machines     repository.MachineRepository
	maintenances repository.MaintenanceRepository
	alerts       repository.AlertRepository
	tanks        repository.TankRepository
	refuelings   repository.RefuelingRepository
	recalc       Recalculator
	now          func() time.Time
	logger       zerolog.Logger
}

type ServiceConfig struct {
	Machines     repository.MachineRepository
	Maintenances repository.MaintenanceRepository
	Alerts       repository.AlertRepository
	Tanks        repository.TankRepository
	Refuelings   repository.RefuelingRepository
	Recalculator Recalculator
}

func NewService(cfg ServiceConfig, logger zerolog.Logger) *Service {
	return &Service{
		machines:     cfg.Machines,
		maintenances: cfg.Maintenances,
		alerts:       cfg.Alerts,
		tanks:        cfg.Tanks,
		refuelings:   cfg.Refuelings,
		recalc:       cfg.Recalculator,
		now:          time.Now,
		logger:       logger.With().Str("component", "fleet_service").Logger(),
	}
}

func invalid(msg string) error {
	return errors.Wrap(ErrInvalidInput, msg)
}

// ListMachines returns the machines of one property, or all machines when
// propertyID is empty.
func (s *Service) ListMachines(ctx context.Context, propertyID string) ([]models.Machine, error) {
	machines, err := s.machines.List(ctx)
	if err != nil || propertyID == "" {
		return machines, err
	}
	out := make([]models.Machine, 0, len(machines))
	for _, m := range machines {
		if m.PropertyID == propertyID {
			out = append(out, m)
		}
	}
	return out, nil
}

// ListAlerts returns the alerts of one property's machines, or every alert
// when propertyID is empty.
func (s *Service) ListAlerts(ctx context.Context, propertyID string) ([]models.Alert, error) {
	list, err := s.alerts.List(ctx)
	if err != nil || propertyID == "" {
		return list, err
	}
	machines, err := s.ListMachines(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]struct{}, len(machines))
	for _, m := range machines {
		owned[m.ID] = struct{}{}
	}
	out := make([]models.Alert, 0, len(list))
	for _, a := range list {
		if _, ok := owned[a.MachineID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// CheckMachineAccess reports ErrNotFound when the machine does not exist or
// belongs to another property. An empty propertyID grants access to all.
func (s *Service) CheckMachineAccess(ctx context.Context, machineID, propertyID string) error {
	machine, err := s.machines.Get(ctx, machineID)
	if err != nil {
		return err
	}
	if propertyID != "" && machine.PropertyID != propertyID {
		return repository.ErrNotFound
	}
	return nil
}

// CheckMaintenanceAccess applies CheckMachineAccess to the maintenance's machine.
func (s *Service) CheckMaintenanceAccess(ctx context.Context, maintenanceID, propertyID string) error {
	maintenance, err := s.maintenances.Get(ctx, maintenanceID)
	if err != nil {
		return err
	}
	if propertyID == "" {
		return nil
	}
	return s.CheckMachineAccess(ctx, maintenance.MachineID, propertyID)
}

func (s *Service) ListTanks(ctx context.Context) ([]models.Tank, error) {
	return s.tanks.List(ctx)
}

func (s *Service) CreateMachine(ctx context.Context, in CreateMachineInput) (models.Machine, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Machine{}, invalid("machine name is required")
	}
	if !in.Type.IsValid() {
		return models.Machine{}, invalid("unknown machine type " + string(in.Type))
	}
	if in.Meter < 0 {
		return models.Machine{}, invalid("meter must not be negative")
	}
	now := s.now()
	return s.machines.Create(ctx, models.Machine{
		ID:           uuid.NewString(),
		PropertyID:   strings.TrimSpace(in.PropertyID),
		Name:         name,
		Type:         in.Type,
		CurrentMeter: in.Meter,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// UpdateMeter moves a machine's meter forward and re-derives alert statuses.
// Readings below the stored meter fail with ErrMeterRegression.
func (s *Service) UpdateMeter(ctx context.Context, machineID string, meter float64) (models.Machine, error) {
	if meter < 0 {
		return models.Machine{}, invalid("meter must not be negative")
	}
	return s.advanceMeter(ctx, machineID, meter, true)
}

// advanceMeter raises the meter inside the repository lock so overlapping
// updates cannot move it backwards. Lower readings are ignored unless strict.
func (s *Service) advanceMeter(ctx context.Context, machineID string, meter float64, strict bool) (models.Machine, error) {
	advanced := false
	updated, err := s.machines.Update(ctx, machineID, func(m *models.Machine) error {
		if meter < m.CurrentMeter {
			if strict {
				return ErrMeterRegression
			}
			return nil
		}
		if meter == m.CurrentMeter {
			return nil
		}
		m.CurrentMeter = meter
		m.UpdatedAt = s.now()
		advanced = true
		return nil
	})
	if err != nil {
		return models.Machine{}, errors.Wrap(err, "failed to update machine meter")
	}
	if advanced {
		s.recalculate(ctx)
	}
	return updated, nil
}

// RecordMaintenance stores a service event and creates one alert per item
// with a positive interval.
func (s *Service) RecordMaintenance(ctx context.Context, machineID string, in MaintenanceInput) (models.Maintenance, []models.Alert, error) {
	if in.Meter < 0 {
		return models.Maintenance{}, nil, invalid("meter must not be negative")
	}
	if len(in.Items) == 0 {
		return models.Maintenance{}, nil, invalid("at least one serviced item is required")
	}
	machine, err := s.machines.Get(ctx, machineID)
	if err != nil {
		return models.Maintenance{}, nil, err
	}

	maintenance, err := s.maintenances.Create(ctx, models.Maintenance{
		ID:        uuid.NewString(),
		MachineID: machineID,
		Meter:     in.Meter,
		Items:     in.Items,
		Notes:     strings.TrimSpace(in.Notes),
		Intervals: in.Intervals,
		CreatedAt: s.now(),
	})
	if err != nil {
		return models.Maintenance{}, nil, errors.Wrap(err, "failed to store maintenance")
	}

	current := machine.CurrentMeter
	if in.Meter > current {
		current = in.Meter
	}
	created := alerts.FromMaintenance(maintenance, current, s.now())
	if err := s.alerts.Add(ctx, created...); err != nil {
		return models.Maintenance{}, nil, errors.Wrap(err, "failed to store maintenance alerts")
	}

	if _, err := s.advanceMeter(ctx, machineID, in.Meter, false); err != nil {
		return models.Maintenance{}, nil, err
	}
	return maintenance, created, nil
}

// DeleteMaintenance removes a maintenance record together with its alerts.
func (s *Service) DeleteMaintenance(ctx context.Context, id string) error {
	if err := s.maintenances.Delete(ctx, id); err != nil {
		return err
	}
	removed, err := s.alerts.DeleteByMaintenance(ctx, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete maintenance alerts")
	}
	s.logger.Info().Str("maintenance_id", id).Int("alerts_removed", removed).Msg("maintenance deleted")
	return nil
}

// RecordRefueling debits the tank and moves the machine meter forward.
func (s *Service) RecordRefueling(ctx context.Context, machineID string, in RefuelingInput) (models.Refueling, error) {
	if in.Liters <= 0 {
		return models.Refueling{}, invalid("liters must be positive")
	}
	if strings.TrimSpace(in.TankID) == "" {
		return models.Refueling{}, invalid("tank_id is required")
	}
	machine, err := s.machines.Get(ctx, machineID)
	if err != nil {
		return models.Refueling{}, err
	}
	if in.Meter > 0 && in.Meter < machine.CurrentMeter {
		return models.Refueling{}, ErrMeterRegression
	}

	if _, err := s.tanks.Withdraw(ctx, in.TankID, in.Liters); err != nil {
		if errors.Is(err, repository.ErrInsufficientLevel) {
			return models.Refueling{}, invalid("liters exceed the tank level")
		}
		return models.Refueling{}, errors.Wrap(err, "failed to debit tank")
	}
	refueling, err := s.refuelings.Create(ctx, models.Refueling{
		ID:        uuid.NewString(),
		MachineID: machineID,
		TankID:    in.TankID,
		Liters:    in.Liters,
		Meter:     in.Meter,
		CreatedAt: s.now(),
	})
	if err != nil {
		return models.Refueling{}, errors.Wrap(err, "failed to store refueling")
	}

	if _, err := s.advanceMeter(ctx, machineID, in.Meter, false); err != nil {
		return models.Refueling{}, err
	}
	return refueling, nil
}

// DeleteMachine hard-deletes a machine, credits its refuelings back to their
// tanks and removes its maintenance records and alerts.
func (s *Service) DeleteMachine(ctx context.Context, machineID string) error {
	if _, err := s.machines.Get(ctx, machineID); err != nil {
		return err
	}

	refuelings, err := s.refuelings.ListByMachine(ctx, machineID)
	if err != nil {
		return errors.Wrap(err, "failed to load refuelings")
	}
	for _, r := range refuelings {
		if _, err := s.tanks.AdjustLevel(ctx, r.TankID, r.Liters); err != nil {
			s.logger.Warn().Err(err).Str("tank_id", r.TankID).Str("refueling_id", r.ID).Msg("failed to credit fuel back")
		}
	}
	if err := s.refuelings.DeleteByMachine(ctx, machineID); err != nil {
		return errors.Wrap(err, "failed to delete refuelings")
	}
	if err := s.maintenances.DeleteByMachine(ctx, machineID); err != nil {
		return errors.Wrap(err, "failed to delete maintenances")
	}
	if _, err := s.alerts.DeleteByMachine(ctx, machineID); err != nil {
		return errors.Wrap(err, "failed to delete alerts")
	}
	return s.machines.Delete(ctx, machineID)
}

func (s *Service) UpsertTank(ctx context.Context, tank models.Tank) (models.Tank, error) {
	if strings.TrimSpace(tank.ID) == "" {
		return models.Tank{}, invalid("tank id is required")
	}
	if tank.Capacity <= 0 {
		return models.Tank{}, invalid("capacity must be positive")
	}
	if tank.CurrentLevel < 0 || tank.CurrentLevel > tank.Capacity {
		return models.Tank{}, invalid("current level must be between 0 and capacity")
	}
	if tank.AlertThreshold < 0 || tank.AlertThreshold > tank.Capacity {
		return models.Tank{}, invalid("alert threshold must be between 0 and capacity")
	}
	tank.UpdatedAt = s.now()
	return s.tanks.Upsert(ctx, tank)
}

func (s *Service) recalculate(ctx context.Context) {
	if s.recalc == nil {
		return
	}
	if _, err := s.recalc.Recalculate(ctx); err != nil {
		s.logger.Error().Err(err).Msg("alert recalculation failed")
	}
}

// Stats aggregates alert and tank statuses for the dashboard.
func (s *Service) Stats(ctx context.Context) (models.FleetStat, error) {
	machines, err := s.machines.List(ctx)
	if err != nil {
		return models.FleetStat{}, errors.Wrap(err, "failed to load machines")
	}
	list, err := s.alerts.List(ctx)
	if err != nil {
		return models.FleetStat{}, errors.Wrap(err, "failed to load alerts")
	}
	tanks, err := s.tanks.List(ctx)
	if err != nil {
		return models.FleetStat{}, errors.Wrap(err, "failed to load tanks")
	}

	stat := models.FleetStat{
		Machines:   len(machines),
		PerMachine: make([]models.MachineStat, 0, len(machines)),
	}
	index := make(map[string]int, len(machines))
	for i, m := range machines {
		index[m.ID] = i
		stat.PerMachine = append(stat.PerMachine, models.MachineStat{
			MachineID: m.ID,
			Name:      m.Name,
			Meter:     m.CurrentMeter,
			Unit:      m.Type.Unit(),
		})
	}
	for _, a := range list {
		i, ok := index[a.MachineID]
		if !ok {
			stat.OrphanAlerts++
			continue
		}
		stat.Alerts.Add(a.Status)
		stat.PerMachine[i].Alerts.Add(a.Status)
	}
	for _, t := range tanks {
		stat.Tanks.Add(alerts.TankStatus(t))
	}
	return stat, nil
}
