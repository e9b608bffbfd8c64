package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/alerts"
	"github.com/stanstork/agrotrack-api/internal/models"
)

// DefaultEmailHour is the local hour during which the daily digest is emailed.
const DefaultEmailHour = 21

// Deduper tracks which alerts were already surfaced today.
type Deduper interface {
	WasNotifiedToday(ctx context.Context, alertID string) bool
	MarkNotified(ctx context.Context, alertID string) error
}

type AlertLister interface {
	List(ctx context.Context) ([]models.Alert, error)
}

type MachineLister interface {
	List(ctx context.Context) ([]models.Machine, error)
}

type TankLister interface {
	List(ctx context.Context) ([]models.Tank, error)
}

type DispatcherConfig struct {
	Alerts     AlertLister
	Machines   MachineLister
	Tanks      TankLister
	History    Deduper
	Push       PushSender
	Email      EmailSender
	Recipients RecipientSource
	Location   *time.Location
	EmailHour  int
	Now        func() time.Time
}

// CheckOptions tune a single check.
type CheckOptions struct {
	// ForceEmail sends the digest regardless of the local hour.
	ForceEmail bool
}

// Report summarises what a check did.
type Report struct {
	CheckedAt         time.Time `json:"checked_at"`
	Notified          []string  `json:"notified"`
	AlreadyNotified   int       `json:"already_notified"`
	PushSent          int       `json:"push_sent"`
	PushFailed        int       `json:"push_failed"`
	EmailWindow       bool      `json:"email_window"`
	TankEmails        int       `json:"tank_emails"`
	MaintenanceEmails int       `json:"maintenance_emails"`
	EmailFailures     int       `json:"email_failures"`
}

type maintenanceItem struct {
	alert   models.Alert
	machine models.Machine
}

// Dispatcher evaluates current alerts, pushes the ones that are due and not
// yet surfaced today, and emails a consolidated digest inside the daily window.
type Dispatcher struct {
	cfg    DispatcherConfig
	logger zerolog.Logger
}

func NewDispatcher(cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Recipients == nil {
		cfg.Recipients = StaticRecipients()
	}
	// Zero means unset; midnight digests are not supported.
	if cfg.EmailHour <= 0 || cfg.EmailHour > 23 {
		cfg.EmailHour = DefaultEmailHour
	}
	return &Dispatcher{
		cfg:    cfg,
		logger: logger.With().Str("component", "notification_dispatcher").Logger(),
	}
}

// Check runs one evaluation. It never fails: every error is logged and the
// affected alert, channel or recipient is skipped.
func (d *Dispatcher) Check(ctx context.Context, opts CheckOptions) Report {
	now := d.cfg.Now()
	report := Report{CheckedAt: now}

	var tankBucket []models.Tank
	for _, tank := range d.dueTanks(ctx) {
		msg := models.PushMessage{
			Title: alerts.TankTitle(tank),
			Body:  alerts.TankBody(tank),
			Data: map[string]string{
				"kind":     string(models.AlertKindTank),
				"alert_id": tank.AlertID(),
				"tank_id":  tank.ID,
			},
		}
		if d.surface(ctx, tank.AlertID(), msg, &report) {
			tankBucket = append(tankBucket, tank)
		}
	}

	var maintenanceBucket []maintenanceItem
	for _, item := range d.dueMaintenance(ctx) {
		msg := models.PushMessage{
			Title: alerts.MaintenanceTitle(item.alert, item.machine),
			Body:  alerts.MaintenanceBody(item.alert, item.machine),
			Data: map[string]string{
				"kind":       string(models.AlertKindMaintenance),
				"alert_id":   item.alert.ID,
				"machine_id": item.machine.ID,
			},
		}
		if d.surface(ctx, item.alert.ID, msg, &report) {
			maintenanceBucket = append(maintenanceBucket, item)
		}
	}

	report.EmailWindow = opts.ForceEmail || now.In(d.cfg.Location).Hour() == d.cfg.EmailHour
	if !report.EmailWindow || (len(tankBucket) == 0 && len(maintenanceBucket) == 0) {
		return report
	}
	if d.cfg.Email == nil {
		d.logger.Debug().Msg("no email sender configured, skipping digest")
		return report
	}

	recipients, err := d.cfg.Recipients(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Int("fallback_recipients", len(recipients)).Msg("failed to resolve digest recipients")
	}
	if len(recipients) == 0 {
		d.logger.Debug().Msg("no digest recipients configured")
		return report
	}

	if len(tankBucket) > 0 {
		report.TankEmails = d.sendTankDigest(ctx, tankBucket[0], recipients, &report)
	}
	if len(maintenanceBucket) > 0 {
		report.MaintenanceEmails = d.sendMaintenanceDigest(ctx, maintenanceBucket, recipients, &report)
	}
	return report
}

// surface pushes one alert unless it was already surfaced today and marks it
// notified. The mark happens before any digest email is attempted.
func (d *Dispatcher) surface(ctx context.Context, alertID string, msg models.PushMessage, report *Report) bool {
	if d.cfg.History != nil && d.cfg.History.WasNotifiedToday(ctx, alertID) {
		report.AlreadyNotified++
		return false
	}

	if d.cfg.Push != nil {
		if err := d.cfg.Push.Push(ctx, msg); err != nil {
			logNotifyError(d.logger, err, "push", alertID)
			report.PushFailed++
		} else {
			report.PushSent++
		}
	}

	if d.cfg.History != nil {
		if err := d.cfg.History.MarkNotified(ctx, alertID); err != nil {
			d.logger.Warn().Err(err).Str("alert_id", alertID).Msg("failed to record notification")
		}
	}
	report.Notified = append(report.Notified, alertID)
	return true
}

func (d *Dispatcher) dueTanks(ctx context.Context) []models.Tank {
	if d.cfg.Tanks == nil {
		return nil
	}
	tanks, err := d.cfg.Tanks.List(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("failed to load tanks")
		return nil
	}
	var due []models.Tank
	for _, t := range tanks {
		if alerts.TankStatus(t).IsDue() {
			due = append(due, t)
		}
	}
	return due
}

func (d *Dispatcher) dueMaintenance(ctx context.Context) []maintenanceItem {
	if d.cfg.Alerts == nil || d.cfg.Machines == nil {
		return nil
	}
	list, err := d.cfg.Alerts.List(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("failed to load alerts")
		return nil
	}
	if len(list) == 0 {
		return nil
	}
	machines, err := d.cfg.Machines.List(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("failed to load machines")
		return nil
	}
	byID := make(map[string]models.Machine, len(machines))
	for _, m := range machines {
		byID[m.ID] = m
	}

	var due []maintenanceItem
	for _, a := range list {
		if !a.Status.IsDue() {
			continue
		}
		machine, ok := byID[a.MachineID]
		if !ok {
			continue
		}
		due = append(due, maintenanceItem{alert: a, machine: machine})
	}
	return due
}

func (d *Dispatcher) sendTankDigest(ctx context.Context, tank models.Tank, recipients []string, report *Report) int {
	subject, body, err := renderTankDigest(tankDigest{
		TankName:  tank.Name,
		Current:   alerts.FormatAmount(tank.CurrentLevel),
		Capacity:  alerts.FormatAmount(tank.Capacity),
		Threshold: alerts.FormatAmount(tank.AlertThreshold),
		Status:    string(alerts.TankStatus(tank)),
	})
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to render tank digest")
		return 0
	}
	return d.sendToAll(ctx, tank.AlertID(), recipients, subject, body, report)
}

func (d *Dispatcher) sendMaintenanceDigest(ctx context.Context, items []maintenanceItem, recipients []string, report *Report) int {
	rows := make([]maintenanceDigestRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, maintenanceDigestRow{
			Machine: item.machine.Name,
			Item:    item.alert.Item,
			Status:  string(item.alert.Status),
			Due:     alerts.DueText(alerts.Remaining(item.alert, item.machine), item.machine.Type.Unit()),
		})
	}
	subject, body, err := renderMaintenanceDigest(rows)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to render maintenance digest")
		return 0
	}
	return d.sendToAll(ctx, "maintenance_digest", recipients, subject, body, report)
}

func (d *Dispatcher) sendToAll(ctx context.Context, ref string, recipients []string, subject, body string, report *Report) int {
	sent := 0
	for _, recipient := range recipients {
		if err := d.cfg.Email.Send(ctx, recipient, subject, body); err != nil {
			logNotifyError(d.logger.With().Str("recipient", recipient).Logger(), err, "email", ref)
			report.EmailFailures++
			continue
		}
		sent++
	}
	return sent
}
