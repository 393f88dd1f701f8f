package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hamed0406/uptimeworker/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect rotated outcome logs",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archive ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		live, err := a.logs.List(cmd.Context(), false)
		if err != nil {
			return err
		}
		all, err := a.logs.List(cmd.Context(), true)
		if err != nil {
			return err
		}
		isLive := make(map[string]bool, len(live))
		for _, id := range live {
			isLive[id] = true
		}
		for _, id := range all {
			if !isLive[id] {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
		}
		return nil
	},
}

var archiveCatCmd = &cobra.Command{
	Use:   "cat <archive-id>",
	Short: "Print the decompressed contents of an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		id := strings.TrimSuffix(args[0], archive.Ext)
		data, err := a.logs.ReadArchive(cmd.Context(), id)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	archiveCmd.AddCommand(archiveListCmd, archiveCatCmd)
	rootCmd.AddCommand(archiveCmd)
}
