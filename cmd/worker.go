package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start long running background workers.`,
}

var reconcileWorkerCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Start the periodic hierarchy reconciler",
	Long:  `Reconcile hierarchy roles and project descriptions on a fixed interval until stopped.`,
	Run: func(cmd *cobra.Command, args []string) {
		startReconcileWorker()
	},
}

var reconcileInterval time.Duration

func startReconcileWorker() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	interval := deps.Config.Hierarchy.ReconcileInterval
	if reconcileInterval > 0 {
		interval = reconcileInterval
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps.Logger.Info("starting reconcile worker",
		"interval", interval,
		"concurrency", deps.Config.Hierarchy.ReconcileConcurrency)

	done := make(chan struct{})
	go func() {
		deps.Reconciler.RunPeriodic(ctx, interval)
		close(done)
	}()

	<-ctx.Done()
	deps.Logger.Info("received signal, shutting down reconcile worker")

	select {
	case <-done:
		deps.Logger.Info("reconcile worker shutdown complete")
	case <-time.After(30 * time.Second):
		deps.Logger.Warn("shutdown timeout reached, forcing exit")
	}
}

func init() {
	reconcileWorkerCmd.Flags().DurationVar(&reconcileInterval, "interval", 0, "reconciliation interval (overrides config)")

	workerCmd.AddCommand(reconcileWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
