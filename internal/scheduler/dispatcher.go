package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/polishtutor/polishtutor/internal/config"
	"github.com/polishtutor/polishtutor/internal/logger"
	"github.com/robfig/cron/v3"
)

const keepAliveTimeout = 30 * time.Second

// Poster publishes text to the output channel.
type Poster interface {
	PostToChannel(ctx context.Context, text string) error
}

// Recorder receives job outcomes.
type Recorder interface {
	RecordScheduledPost(job, status string)
	RecordKeepAlive(status string)
}

type Options struct {
	Location          *time.Location
	SearchEnabled     bool
	SelfPingURL       string
	KeepAliveInterval time.Duration
}

// OptionsFromConfig maps the loaded configuration onto dispatcher options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Location:          cfg.Location(),
		SearchEnabled:     cfg.EnableSearch,
		SelfPingURL:       cfg.SelfPingURL,
		KeepAliveInterval: cfg.KeepAliveInterval,
	}
}

// Dispatcher fires named jobs on cron schedules and posts their output to the
// channel. Missed firings are not caught up.
type Dispatcher struct {
	cron       *cron.Cron
	tutor      Tutor
	poster     Poster
	recorder   Recorder
	opts       Options
	httpClient *http.Client
	jobs       []JobSpec
	ctx        context.Context
}

func New(tutor Tutor, poster Poster, opts Options) *Dispatcher {
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	cl := cronLogger{}
	return &Dispatcher{
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		tutor:      tutor,
		poster:     poster,
		opts:       opts,
		httpClient: &http.Client{Timeout: keepAliveTimeout},
		ctx:        context.Background(),
	}
}

func (d *Dispatcher) SetRecorder(r Recorder) {
	d.recorder = r
}

// Register validates every spec and then adds them, plus the keep-alive ping
// when a URL is configured. Nothing is added if any spec is invalid.
func (d *Dispatcher) Register(specs []JobSpec) error {
	for _, spec := range specs {
		if _, err := lookupJob(spec.Name, d.opts.SearchEnabled); err != nil {
			return err
		}
		if _, err := cron.ParseStandard(spec.Spec); err != nil {
			return fmt.Errorf("invalid cron spec %q for job %s: %w", spec.Spec, spec.Name, err)
		}
	}

	for _, spec := range specs {
		name := spec.Name
		if _, err := d.cron.AddFunc(spec.Spec, func() { d.fire(name) }); err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", name, err)
		}
		d.jobs = append(d.jobs, spec)
		logger.Info("Job scheduled", map[string]interface{}{
			"job":      string(name),
			"spec":     spec.Spec,
			"location": d.opts.Location.String(),
		})
	}

	if d.opts.SelfPingURL != "" && d.opts.KeepAliveInterval > 0 {
		every := fmt.Sprintf("@every %s", d.opts.KeepAliveInterval)
		if _, err := d.cron.AddFunc(every, d.keepAlive); err != nil {
			return fmt.Errorf("failed to schedule keep-alive: %w", err)
		}
		logger.Info("Keep-alive scheduled", map[string]interface{}{
			"url":      d.opts.SelfPingURL,
			"interval": d.opts.KeepAliveInterval.String(),
		})
	}

	return nil
}

// Jobs returns the registered posting jobs in registration order.
func (d *Dispatcher) Jobs() []JobSpec {
	return append([]JobSpec(nil), d.jobs...)
}

// Start runs the cron loop in the background. ctx is passed to every job.
func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx = ctx
	d.cron.Start()
	logger.Info("Scheduler started", map[string]interface{}{
		"jobs": len(d.jobs),
	})
}

// Stop halts the cron loop and waits for running jobs, or for ctx.
func (d *Dispatcher) Stop(ctx context.Context) {
	done := d.cron.Stop()
	select {
	case <-done.Done():
		logger.InfoMsg("Scheduler stopped")
	case <-ctx.Done():
		logger.Warn("Scheduler stop timed out with jobs still running", nil)
	}
}

// Run executes one job now and posts its output to the channel. Backend
// failures still post the sentinel text; only a failed post is an error.
func (d *Dispatcher) Run(ctx context.Context, name JobName) error {
	entry, err := lookupJob(name, d.opts.SearchEnabled)
	if err != nil {
		return err
	}

	res := entry.run(d.tutor, ctx)
	status := "success"
	if !res.OK() {
		status = "degraded"
		logger.Warn("Scheduled job produced a fallback message", map[string]interface{}{
			"job":    string(name),
			"reason": res.Reason.String(),
		})
	}

	if err := d.poster.PostToChannel(ctx, res.Text); err != nil {
		d.record(name, "error")
		return fmt.Errorf("failed to post %s: %w", name, err)
	}

	d.record(name, status)
	logger.Info("Scheduled content posted", map[string]interface{}{
		"job":    string(name),
		"status": status,
	})
	return nil
}

func (d *Dispatcher) fire(name JobName) {
	if err := d.Run(d.ctx, name); err != nil {
		logger.Error("Scheduled job failed", map[string]interface{}{
			"job":   string(name),
			"error": err.Error(),
		})
	}
}

func (d *Dispatcher) record(name JobName, status string) {
	if d.recorder != nil {
		d.recorder.RecordScheduledPost(string(name), status)
	}
}
