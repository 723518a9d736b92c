package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solvanity/internal/config"
	"github.com/solvanity/pkg/device"
)

func newDevicesCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available compute devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				cfg = config.New()
			}

			devs, err := device.Enumerate(device.Config{
				KernelPath: cfg.Device.KernelPath,
				AllowCPU:   true,
				CPUWorkers: cfg.Device.CPUWorkers,
			})
			if err != nil {
				return err
			}
			if len(devs) == 0 {
				fmt.Println("No compute devices found.")
				return nil
			}
			for _, dev := range devs {
				fmt.Printf("  %-12s %s\n", dev.ID(), dev.Name())
			}
			return nil
		},
	}
}
