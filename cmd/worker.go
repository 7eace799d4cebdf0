/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/farmsight/apiserver/config"
	"github.com/farmsight/apiserver/internal/db"
	"github.com/farmsight/apiserver/internal/ingest"
	"github.com/farmsight/apiserver/internal/mq"
	"github.com/farmsight/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Starts the sensor-reading ingestion worker",
	Long: `Starts the sensor-reading ingestion worker. It consumes device
telemetry from the configured message broker and stores it as sensor
readings. Usage:

	farmsight worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer dbConn.Close()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("open message queue: %w", err)
		}
		defer queue.Close()

		worker := ingest.NewWorker(
			queue,
			store.NewDeviceRepository(dbConn),
			store.NewReadingRepository(dbConn),
			cfg.MQ.ReadingsChannel,
		)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
