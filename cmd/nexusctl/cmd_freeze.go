package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFreezeCmd(configPath, _ *string) *cobra.Command {
	var deviceMap string
	cmd := &cobra.Command{
		Use:   "freeze <volume-id>",
		Short: "Freeze the filesystem backing a volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildVolumeService(*configPath, deviceMap)
			if err != nil {
				return err
			}
			if err := svc.FreezeVolume(cmd.Context(), args[0]); err != nil {
				printOutcome(false, fmt.Sprintf("freeze failed: %v", err))
				return err
			}
			printOutcome(true, fmt.Sprintf("volume %s frozen", args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&deviceMap, "device-map", "", "Path to a YAML volume-id -> device-name map")
	return cmd
}

func newUnfreezeCmd(configPath, _ *string) *cobra.Command {
	var deviceMap string
	cmd := &cobra.Command{
		Use:   "unfreeze <volume-id>",
		Short: "Unfreeze the filesystem backing a volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildVolumeService(*configPath, deviceMap)
			if err != nil {
				return err
			}
			if err := svc.UnfreezeVolume(cmd.Context(), args[0]); err != nil {
				printOutcome(false, fmt.Sprintf("unfreeze failed: %v", err))
				return err
			}
			printOutcome(true, fmt.Sprintf("volume %s unfrozen", args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&deviceMap, "device-map", "", "Path to a YAML volume-id -> device-name map")
	return cmd
}
