package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/notification"
)

const (
	DefaultCheckInterval = 30 * time.Minute
	DefaultMinCheckGap   = 5 * time.Minute
)

var (
	// ErrCheckInFlight is returned when another check is still running.
	ErrCheckInFlight = errors.New("alert check already in progress")
	// ErrTooSoon is returned when a non-forced check fires inside the minimum gap.
	ErrTooSoon = errors.New("alert check ran too recently")
)

type Trigger string

const (
	TriggerForeground Trigger = "foreground"
	TriggerTimer      Trigger = "timer"
	TriggerManual     Trigger = "manual"
	TriggerScheduled  Trigger = "scheduled"
)

type Recalculator interface {
	Recalculate(ctx context.Context) (int, error)
}

type Dispatcher interface {
	Check(ctx context.Context, opts notification.CheckOptions) notification.Report
}

type WorkerConfig struct {
	Recalculator Recalculator
	Dispatcher   Dispatcher
	Interval     time.Duration
	MinGap       time.Duration
	Now          func() time.Time
}

type lifecycleEvent int

const (
	eventForeground lifecycleEvent = iota
	eventBackground
)

// Worker runs alert checks while the client app is in the foreground: once on
// every foreground transition and then on a fixed interval until the app goes
// to the background. Manual checks can be forced at any time.
type Worker struct {
	cfg        WorkerConfig
	logger     zerolog.Logger
	events     chan lifecycleEvent
	running    atomic.Bool
	foreground atomic.Bool
	lastCheck  atomic.Int64
	// lastGated is when the last non-manual check completed. The minimum gap
	// is measured from it, so forced checks never delay the next scheduled one.
	lastGated atomic.Int64
}

func NewWorker(cfg WorkerConfig, logger zerolog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultCheckInterval
	}
	if cfg.MinGap < 0 {
		cfg.MinGap = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Worker{
		cfg:    cfg,
		logger: logger.With().Str("component", "alert_worker").Logger(),
		events: make(chan lifecycleEvent, 8),
	}
}

// Start processes lifecycle events and timer ticks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.cfg.Interval).Msg("Alert worker started")

	var (
		ticker *time.Ticker
		tick   <-chan time.Time
	)
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
	defer stopTicker()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Alert worker stopped")
			return ctx.Err()
		case ev := <-w.events:
			switch ev {
			case eventForeground:
				w.foreground.Store(true)
				if ticker == nil {
					ticker = time.NewTicker(w.cfg.Interval)
					tick = ticker.C
				}
				w.runLogged(ctx, TriggerForeground)
			case eventBackground:
				w.foreground.Store(false)
				stopTicker()
			}
		case <-tick:
			w.runLogged(ctx, TriggerTimer)
		}
	}
}

// Foreground signals that the client app came to the foreground.
func (w *Worker) Foreground() {
	w.foreground.Store(true)
	w.enqueue(eventForeground)
}

// Background signals that the client app left the foreground.
func (w *Worker) Background() {
	w.foreground.Store(false)
	w.enqueue(eventBackground)
}

func (w *Worker) IsForeground() bool {
	return w.foreground.Load()
}

// LastCheck returns the start time of the last check that ran.
func (w *Worker) LastCheck() time.Time {
	ns := w.lastCheck.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// ForceCheck runs a check immediately, bypassing the minimum gap. It still
// refuses to overlap a check that is in progress.
func (w *Worker) ForceCheck(ctx context.Context, forceEmail bool) (notification.Report, error) {
	return w.Run(ctx, TriggerManual, notification.CheckOptions{ForceEmail: forceEmail})
}

// Run executes one check: the alert recalculation pass followed by the
// notification dispatch. Only manual triggers bypass the minimum gap.
func (w *Worker) Run(ctx context.Context, trigger Trigger, opts notification.CheckOptions) (notification.Report, error) {
	if !w.running.CompareAndSwap(false, true) {
		return notification.Report{}, ErrCheckInFlight
	}
	defer w.running.Store(false)

	now := w.cfg.Now()
	gated := trigger != TriggerManual
	if gated {
		if last := w.lastGated.Load(); last != 0 && now.Sub(time.Unix(0, last)) < w.cfg.MinGap {
			return notification.Report{}, ErrTooSoon
		}
	}
	w.lastCheck.Store(now.UnixNano())

	if w.cfg.Recalculator != nil {
		if _, err := w.cfg.Recalculator.Recalculate(ctx); err != nil {
			w.logger.Error().Err(err).Str("trigger", string(trigger)).Msg("alert recalculation failed")
		}
	}

	report := w.cfg.Dispatcher.Check(ctx, opts)
	if gated {
		w.lastGated.Store(w.cfg.Now().UnixNano())
	}
	w.logger.Info().
		Str("trigger", string(trigger)).
		Int("notified", len(report.Notified)).
		Int("already_notified", report.AlreadyNotified).
		Bool("email_window", report.EmailWindow).
		Msg("alert check completed")
	return report, nil
}

func (w *Worker) runLogged(ctx context.Context, trigger Trigger) {
	if _, err := w.Run(ctx, trigger, notification.CheckOptions{}); err != nil {
		w.logger.Debug().Err(err).Str("trigger", string(trigger)).Msg("alert check skipped")
	}
}

func (w *Worker) enqueue(ev lifecycleEvent) {
	select {
	case w.events <- ev:
	default:
		w.logger.Warn().Msg("lifecycle event queue full, dropping event")
	}
}
