// Package app wires the tokenizer, typed parser, coalescer, process
// tracker, enricher and sink into the single-threaded processing loop
// (§5/§8), adapted from the teacher's App-struct bootstrap idiom.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hillu/laurel/pkg/config"
	"github.com/hillu/laurel/pkg/enrich"
	"github.com/hillu/laurel/pkg/event"
	"github.com/hillu/laurel/pkg/input"
	"github.com/hillu/laurel/pkg/laurelerr"
	"github.com/hillu/laurel/pkg/proctree"
	"github.com/hillu/laurel/pkg/record"
	"github.com/hillu/laurel/pkg/sink"
	"github.com/hillu/laurel/pkg/status"
	"github.com/hillu/laurel/pkg/token"
	"github.com/sirupsen/logrus"
)

// App is the bootstrapped, ready-to-run pipeline.
type App struct {
	closers []io.Closer

	Config *config.Config
	Log    *logrus.Entry

	reader    *input.Reader
	coalescer *event.Coalescer
	tracker   *proctree.Tracker
	enricher  *enrich.Enricher
	sink      *sink.Sink
	reporter  *status.Reporter
	errLog    *ParseErrorLog

	parseOpts   record.Options
	statePath   string
	stateMaxAge time.Duration

	fatal chan error
}

// NewApp bootstraps every component from cfg.
func NewApp(cfg *config.Config, logEntry *logrus.Entry) (*App, error) {
	app := &App{
		Config: cfg,
		Log:    logEntry,
		fatal:  make(chan error, 1),
	}

	reader, err := input.Open(cfg.Input, token.MaxLineLength, logEntry)
	if err != nil {
		return nil, err
	}
	app.reader = reader

	probe := proctree.GopsutilProbe{}
	tracker, err := proctree.NewTracker(cfg.LabelProcess, cfg.State, probe)
	if err != nil {
		return nil, err
	}
	app.tracker = tracker
	app.statePath = cfg.State.File
	app.stateMaxAge = cfg.State.MaxAge
	if app.statePath != "" {
		if err := tracker.LoadState(app.statePath, app.stateMaxAge); err != nil {
			logEntry.WithError(err).Warn("failed to load process tracker state, starting empty")
		}
	}

	var containers enrich.ContainerProvider
	if cfg.Enrich.Container {
		containers = enrich.CgroupContainerProvider{}
	}
	var systemd enrich.SystemdProvider
	if cfg.Enrich.Systemd {
		p, err := enrich.NewDBusSystemdProvider()
		if err != nil {
			logEntry.WithError(err).Warn("systemd enrichment disabled: could not connect to system bus")
		} else {
			systemd = p
			app.closers = append(app.closers, p)
		}
	}

	hostname, _ := os.Hostname()
	enricher, err := enrich.New(cfg.Enrich, cfg.Translate, cfg.Filter, tracker, containers, systemd, hostname)
	if err != nil {
		return nil, err
	}
	app.enricher = enricher

	fw, err := sink.NewFileWriter(cfg.AuditLog)
	if err != nil {
		return nil, err
	}
	app.sink = sink.New(fw, 3, 500*time.Millisecond)
	app.closers = append(app.closers, app.sink)

	errLog, err := NewParseErrorLog(cfg.Debug.ParseErrorLog)
	if err != nil {
		return nil, err
	}
	app.errLog = errLog
	app.closers = append(app.closers, errLog)

	app.reporter = status.New(logEntry)

	app.parseOpts = record.Options{
		EmitArray:      hasExecveArgvMode(cfg.Transform.ExecveArgv, "array"),
		EmitString:     hasExecveArgvMode(cfg.Transform.ExecveArgv, "string"),
		ArgvLimitBytes: cfg.Transform.ExecveArgvLimitBytes,
	}

	app.coalescer = event.New(event.DefaultConfig(), app.onEventFlushed)

	return app, nil
}

func hasExecveArgvMode(modes []string, want string) bool {
	for _, m := range modes {
		if m == want {
			return true
		}
	}
	return false
}

// onEventFlushed is the coalescer's completion callback: it runs
// enrichment and the sink write synchronously, inside the single
// processing loop, per §5's no-concurrency-in-the-core design.
func (a *App) onEventFlushed(ev *event.Event) {
	out, keep := a.enricher.Process(ev, time.Now())
	a.reporter.ObserveEvent(ev.Truncated, ev.Late, !keep)
	if !keep {
		return
	}
	out.Prefix = a.Config.AuditLog.LinePrefix
	if err := a.sink.Write(out); err != nil {
		a.Log.WithError(err).Error("sink write failed")
		if e, ok := err.(*laurelerr.Error); ok && e.IsFatal() {
			select {
			case a.fatal <- err:
			default:
			}
		}
	}
}

// Run reads from the input source and drives the processing loop until the
// input is exhausted or a shutdown signal arrives, then drains and exits
// within the configured shutdown deadline.
func (a *App) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	readerCtx, cancelReader := context.WithCancel(ctx)
	defer cancelReader()

	lines := make(chan input.Line, 1024)
	readerErr := make(chan error, 1)
	go func() { readerErr <- a.reader.Run(readerCtx, lines) }()

	statusPeriod := a.Config.StatusReportPeriod
	if statusPeriod <= 0 {
		statusPeriod = 2 * time.Hour
	}
	ticker := time.NewTicker(statusPeriod)
	defer ticker.Stop()

	coalescerTick := time.NewTicker(time.Second)
	defer coalescerTick.Stop()

	a.errLog.StartFlush(statusPeriod)

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return a.shutdown(readerErr)
			}
			a.processLine(line)

		case now := <-coalescerTick.C:
			a.coalescer.Tick(now)
			a.tracker.Sweep(now)

		case <-ticker.C:
			a.logStatus()

		case <-sigCh:
			a.Log.Info("shutdown signal received")
			cancelReader()

		case err := <-a.fatal:
			cancelReader()
			return err
		}
	}
}

// processLine tokenizes and parses one input line and feeds it to the
// coalescer. A line the tokenizer rejects is counted and sampled into the
// parse-error log; when its type and event id could still be read it is fed
// as an opaque record, otherwise it is not fed.
func (a *App) processLine(line input.Line) {
	tl, err := token.Tokenize(line.Text)
	if err != nil {
		a.reporter.ObserveRecord(true)
		a.errLog.Sample(line.Text, 0, err.Error())
		if tl == nil || tl.ID.Zero() {
			return
		}
		rec := record.ParseOpaque(line.Text, tl, err)
		rec.Truncated = line.Truncated
		a.coalescer.Feed(tl.ID, rec, time.Now())
		return
	}
	a.reporter.ObserveRecord(false)

	rec := record.Parse(tl, a.parseOpts)
	rec.RawLine = line.Text
	rec.Truncated = rec.Truncated || line.Truncated
	a.coalescer.Feed(tl.ID, rec, time.Now())
}

func (a *App) logStatus() {
	rep := a.reporter.Snapshot(a.tracker.Size(), a.tracker.Evicted, a.sink.WriteFailures, a.sink.Retries)
	a.reporter.Log(rep)
}

// shutdown flushes the coalescer, persists tracker state, and closes every
// registered closer, bounded by the configured shutdown deadline.
func (a *App) shutdown(readerErr <-chan error) error {
	done := make(chan struct{})
	var closeErr error
	go func() {
		defer close(done)
		a.coalescer.Close()
		if a.statePath != "" {
			if saveErr := a.tracker.SaveState(a.statePath); saveErr != nil {
				a.Log.WithError(saveErr).Warn("failed to persist process tracker state")
			}
		}
		for _, c := range a.closers {
			if cerr := c.Close(); cerr != nil {
				closeErr = cerr
			}
		}
	}()

	deadline := a.Config.ShutdownDeadline
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	select {
	case <-done:
	case <-time.After(deadline):
		a.Log.Warn("shutdown deadline exceeded, exiting anyway")
	}

	if rerr := <-readerErr; rerr != nil {
		a.Log.WithError(rerr).Debug("input reader exited")
	}
	if closeErr != nil {
		return fmt.Errorf("app: shutdown: %w", closeErr)
	}
	return nil
}
