package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run a single check cycle and print its stats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		stats := a.rechecker().RunOnce(cmd.Context())
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Archive and truncate every outcome log once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.rotator().Rotate(cmd.Context()); err != nil {
			return err
		}
		a.log.Info("rotate_command_done", zap.String("dir", a.cfg.OutcomeLogDir))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cycleCmd, rotateCmd)
}
