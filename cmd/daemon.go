package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/juju/clock"
	"github.com/juju/loggo/v2"
	"github.com/spf13/cobra"

	"borgsched/internal/config"
	"borgsched/internal/engine"
	"borgsched/internal/event"
	"borgsched/internal/lock"
	"borgsched/internal/notifier"
	"borgsched/internal/runner"
	"borgsched/internal/scheduler"
	"borgsched/internal/secret"
)

var daemonLockTTL time.Duration
var daemonStatusFile string

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().DurationVar(&daemonLockTTL, "lock-ttl", 24*time.Hour, "Age after which a leftover daemon lock is considered stale")
	daemonCmd.Flags().StringVar(&daemonStatusFile, "status-file", runner.DefaultStatusPath, "Where to publish run history for the status command (empty disables)")
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scheduling daemon",
	Long:  "Run all configured jobs on their schedules until stopped. SIGHUP (or a config file change with watch_config) reloads configuration; SIGINT/SIGTERM/SIGQUIT shut down gracefully.",
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	snap, _, err := loadSnapshot(true)
	if err != nil {
		return err
	}
	applyLogLevels(snap)
	logger := loggo.GetLogger("borgsched.daemon")
	for _, w := range snap.Warnings {
		logger.Warningf("unknown config key %q ignored", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	version, err := engine.Version(ctx, snap.Settings.EnginePath)
	if err != nil {
		return err
	}
	logger.Infof("engine: %s", version)

	fileLock := lock.NewFileLocker("", daemonLockTTL)
	if err := fileLock.Acquire(ctx); err != nil {
		return err
	}
	defer fileLock.Release(context.Background())

	sink, err := buildSink(snap)
	if err != nil {
		return err
	}
	history := runner.NewHistory(snap.Settings.HistorySize)
	sched := scheduler.New(
		engine.NewBorg(snap.Settings.EnginePath, 0),
		secret.FileResolver{},
		sink,
		history,
		clock.WallClock,
	)
	sched.StatusPath = daemonStatusFile

	reloadTrigger := make(chan struct{}, 1)
	go watchSignals(ctx, reloadTrigger)
	if snap.Settings.WatchConfig {
		go watchConfigFile(ctx, logger, reloadTrigger)
	}
	go reloadLoop(ctx, logger, sink, sched, reloadTrigger)

	logger.Infof("daemon started, %d jobs configured", len(snap.Jobs))
	return sched.Run(ctx, snap)
}

func buildSink(snap *config.Snapshot) (event.Sink, error) {
	logSink := event.NewLogSink("borgsched")
	webhook, err := notifier.NewWebhook(snap.Webhook)
	if err != nil {
		return nil, err
	}
	if webhook == nil {
		return logSink, nil
	}
	return event.Combine(logSink, webhook), nil
}

func watchSignals(ctx context.Context, trigger chan<- struct{}) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			select {
			case trigger <- struct{}{}:
			default:
			}
		}
	}
}

// watchConfigFile watches the config's directory, not the file:
// editors and provisioners replace the file by rename, which would
// orphan a file watch.
func watchConfigFile(ctx context.Context, logger loggo.Logger, trigger chan<- struct{}) {
	path := cfgPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Errorf("config watch unavailable: %v", err)
		return
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Errorf("config watch unavailable: %v", err)
		return
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-watcher.Events:
			if ev.Name != path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce = time.After(500 * time.Millisecond)
		case err := <-watcher.Errors:
			logger.Warningf("config watch: %v", err)
		case <-debounce:
			debounce = nil
			select {
			case trigger <- struct{}{}:
			default:
			}
		}
	}
}

// reloadLoop re-reads and re-validates configuration on demand. A bad
// config emits reload_failed and leaves the running snapshot alone; no
// partial reconfiguration is ever applied.
func reloadLoop(ctx context.Context, logger loggo.Logger, sink event.Sink, sched *scheduler.Scheduler, trigger <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
		}
		snap, _, err := loadSnapshot(true)
		if err != nil {
			logger.Errorf("reload rejected: %v", err)
			sink.Emit(event.Event{
				Timestamp: time.Now(),
				Outcome:   event.OutcomeReloadFailed,
				Detail:    err.Error(),
			})
			continue
		}
		for _, w := range snap.Warnings {
			logger.Warningf("unknown config key %q ignored", w)
		}
		applyLogLevels(snap)
		sched.Reload(snap)
	}
}
