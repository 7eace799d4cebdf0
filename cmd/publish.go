/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/farmsight/apiserver/config"
	"github.com/farmsight/apiserver/internal/ingest"
	"github.com/farmsight/apiserver/internal/mq"
	"github.com/farmsight/apiserver/internal/services"
	"github.com/spf13/cobra"
)

var publishReading ingest.ReadingMessage

// publishCmd represents the publish-reading command
var publishCmd = &cobra.Command{
	Use:   "publish-reading",
	Short: "Publishes a sensor reading to the ingestion queue",
	Long: `Publishes a single sensor reading to the configured message broker,
standing in for a device gateway. Useful for smoke-testing the ingestion
worker. Usage:

	farmsight publish-reading --mac AA:BB:CC:11:22:33 --temperature 21.5
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		mac, err := services.NormalizeMAC(publishReading.MACAddress)
		if err != nil {
			return err
		}
		publishReading.MACAddress = mac
		if publishReading.RecordedAt.IsZero() {
			publishReading.RecordedAt = time.Now().UTC()
		}

		payload, err := json.Marshal(publishReading)
		if err != nil {
			return err
		}

		queue, err := mq.Open(cmd.Context(), cfg.MQ)
		if err != nil {
			return fmt.Errorf("open message queue: %w", err)
		}
		defer queue.Close()

		id, err := queue.Publish(cmd.Context(), cfg.MQ.ReadingsChannel, payload, map[string]string{
			"mac_address": mac,
		})
		if err != nil {
			return fmt.Errorf("publish reading: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published reading %s to %s\n", id, cfg.MQ.ReadingsChannel)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishReading.MACAddress, "mac", "", "device MAC address (required)")
	publishCmd.Flags().Float64Var(&publishReading.Temperature, "temperature", 0, "temperature in celsius")
	publishCmd.Flags().Float64Var(&publishReading.Humidity, "humidity", 0, "relative humidity percentage")
	publishCmd.Flags().Float64Var(&publishReading.SoilMoisture, "soil-moisture", 0, "volumetric soil moisture")
	publishCmd.Flags().Float64Var(&publishReading.BatteryLevel, "battery", 0, "battery level percentage")
	_ = publishCmd.MarkFlagRequired("mac")
}
