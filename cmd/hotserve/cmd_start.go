package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/hotserve/config"
	"github.com/shashiranjanraj/hotserve/internal/server"
	"github.com/shashiranjanraj/hotserve/pkg/event"
	"github.com/shashiranjanraj/hotserve/pkg/logger"
	"github.com/shashiranjanraj/hotserve/pkg/ready"
	"github.com/shashiranjanraj/hotserve/pkg/supervisor"
	"github.com/shashiranjanraj/hotserve/pkg/watch"
)

var (
	watchFlag      bool
	watchPathsFlag []string
	debounceFlag   time.Duration
)

// hotserve start
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server, optionally restarting it on file changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		snap, err := config.Load(configFiles...)
		if err != nil {
			return err
		}

		closeLog, err := logger.Setup(logger.Options{
			Env:             snap.App.Env,
			Level:           snap.Log.Level,
			MongoURI:        snap.Log.MongoURI,
			MongoDatabase:   snap.Log.MongoDatabase,
			MongoCollection: snap.Log.MongoCollection,
		})
		defer closeLog()
		if err != nil {
			return err
		}

		opts := startOptions{
			watch:      watchFlag,
			watchPaths: watchPathsFlag,
			debounce:   snap.Watch.Debounce,
		}
		if cmd.Flags().Changed("debounce") {
			opts.debounce = debounceFlag
		}
		return runStart(ctx, snap, opts, cmd.OutOrStdout())
	},
}

func init() {
	startCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "restart the server whenever a watched file changes")
	startCmd.Flags().StringSliceVar(&watchPathsFlag, "watch-path", nil, "extra file or directory to watch (repeatable)")
	startCmd.Flags().DurationVar(&debounceFlag, "debounce", watch.DefaultDebounce, "minimum time between two restarts")
}

type startOptions struct {
	watch      bool
	watchPaths []string
	debounce   time.Duration
}

func runStart(ctx context.Context, snap *config.Snapshot, opts startOptions, out io.Writer) error {
	tx, rx := ready.New()
	go announce(ctx, rx, snap, out)

	if !opts.watch {
		return supervisor.RunOnce(ctx, server.New(snap).Start, tx)
	}

	paths := watchSet(snap, opts.watchPaths)
	producer, err := watch.NewProducer(paths)
	if err != nil {
		tx.Close()
		return err
	}
	defer producer.Close()

	restarts := watch.NewRestarts()
	gate := watch.NewGate(restarts, watch.WithWindow(opts.debounce))
	go gate.Run(ctx, producer.Events())

	bus := event.NewBus()
	bus.Listen(supervisor.EventRestarting, func(any) {
		fmt.Fprintln(out, "↻  change detected, restarting")
	})
	bus.Listen(supervisor.EventReady, func(p any) {
		if lc, ok := p.(supervisor.Lifecycle); ok && lc.Spawn > 1 {
			fmt.Fprintf(out, "✅  reloaded (run #%d)\n", lc.Spawn)
		}
	})

	logger.L.Info("watch mode enabled", "debounce", opts.debounce.String())

	sup := supervisor.New(reloadingTask(snap.Files()), restarts,
		supervisor.WithReady(tx),
		supervisor.WithEvents(bus),
	)
	return sup.Run(ctx)
}

// reloadingTask re-reads the configuration on every spawn so a restart
// always serves what is on disk. An invalid file keeps the task idle until
// the next change instead of ending watch mode.
func reloadingTask(files []string) supervisor.Task {
	return func(ctx context.Context, tx *ready.Sender) error {
		snap, err := config.Load(files...)
		if err != nil {
			logger.L.Error("configuration invalid, waiting for changes", "error", err)
			<-ctx.Done()
			return nil
		}
		return server.New(snap).Start(ctx, tx)
	}
}

// watchSet is the config files, then watch.paths, then --watch-path, with
// duplicates removed.
func watchSet(snap *config.Snapshot, extra []string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	for _, p := range snap.Files() {
		add(p)
	}
	for _, p := range snap.Watch.Paths {
		add(p)
	}
	for _, p := range extra {
		add(p)
	}
	return out
}

func announce(ctx context.Context, rx *ready.Receiver, snap *config.Snapshot, out io.Writer) {
	ok, err := rx.Wait(ctx)
	if err != nil || !ok {
		return
	}
	fmt.Fprintf(out, "🚀  %s ready on %s (pid %d)\n", snap.App.Name, snap.Server.HTTPAddr, os.Getpid())
}
