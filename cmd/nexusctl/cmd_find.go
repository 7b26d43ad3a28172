package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newFindCmd(configPath, output *string) *cobra.Command {
	var deviceMap string
	cmd := &cobra.Command{
		Use:   "find <volume-id>",
		Short: "Classify a volume as FileSystem or RawBlock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildVolumeService(*configPath, deviceMap)
			if err != nil {
				return err
			}
			class, err := svc.FindVolume(cmd.Context(), args[0])
			if err != nil {
				printOutcome(false, fmt.Sprintf("find failed: %v", err))
				return err
			}
			return outputFindResult(args[0], class.String(), *output)
		},
	}
	cmd.Flags().StringVar(&deviceMap, "device-map", "", "Path to a YAML volume-id -> device-name map")
	return cmd
}

type findResult struct {
	VolumeID       string `json:"volumeId" yaml:"volumeId"`
	Classification string `json:"classification" yaml:"classification"`
}

func outputFindResult(volumeID, classification, format string) error {
	result := findResult{VolumeID: volumeID, Classification: classification}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		return enc.Encode(result)
	default:
		t := newStyledTable()
		t.AppendHeader(table.Row{"Volume", "Classification"})
		t.AppendRow(table.Row{result.VolumeID, result.Classification})
		t.Render()
		return nil
	}
}
