package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/validate"
)

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "Inspect and seed check records in the configured store",
}

var checksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List check ids and whether each is eligible to run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.checks.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, id := range ids {
			raw, err := a.checks.Read(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(out, "%s\tunreadable: %v\n", id, err)
				continue
			}
			v := validate.Check(raw)
			if !v.Eligible {
				fmt.Fprintf(out, "%s\tinvalid: %v\n", id, v.Err)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\t%s %s\n", id, v.Check.State, v.Check.Method, v.Check.Target())
		}
		return nil
	},
}

var checksImportCmd = &cobra.Command{
	Use:   "import <file.json>...",
	Short: "Store check records read from JSON files",
	Long: "Each file holds one check record. Records are validated the same " +
		"way the worker validates them before they are stored.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			v := validate.Check(raw)
			if !v.Eligible {
				return fmt.Errorf("%s: %w", path, v.Err)
			}
			if err := a.put(cmd.Context(), v.Check.ID, raw); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			a.log.Info("check_imported", zap.String("check_id", v.Check.ID), zap.String("file", path))
			fmt.Fprintln(cmd.OutOrStdout(), v.Check.ID)
		}
		return nil
	},
}

func init() {
	checksCmd.AddCommand(checksListCmd, checksImportCmd)
	rootCmd.AddCommand(checksCmd)
}
