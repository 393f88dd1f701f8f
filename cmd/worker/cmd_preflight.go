package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hamed0406/uptimeworker/internal/config"
)

// ErrPreflightFailed is returned when the configuration cannot run.
var ErrPreflightFailed = errors.New("preflight failed")

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Validate configuration and report what the worker would use",
	Args:  cobra.NoArgs,
	RunE:  runPreflight,
}

func init() {
	rootCmd.AddCommand(preflightCmd)
}

func runPreflight(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ok := func(msg string) { fmt.Fprintln(out, "✔", msg) }
	warn := func(msg string) { fmt.Fprintln(out, "⚠", msg) }

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(out, "✖", err)
		return ErrPreflightFailed
	}

	ok("STORE=" + cfg.Store)
	switch cfg.Store {
	case config.StoreFile:
		ok("DATA_DIR=" + cfg.DataDir)
	case config.StoreSQLite:
		ok("SQLITE_PATH=" + cfg.SQLitePath)
	case config.StorePostgres:
		ok("DATABASE_URL present")
	case config.StoreMemory:
		warn("STORE=memory: checks are not persisted and start empty")
	}
	ok("OUTCOME_LOG_DIR=" + cfg.OutcomeLogDir)

	if cfg.CheckInterval == 0 {
		warn("CHECK_INTERVAL=0: check loop disabled")
	} else {
		ok("CHECK_INTERVAL=" + cfg.CheckInterval.String())
	}
	if cfg.RotationInterval == 0 {
		warn("ROTATION_INTERVAL=0: log rotation disabled")
	} else {
		ok("ROTATION_INTERVAL=" + cfg.RotationInterval.String())
	}

	switch {
	case cfg.SMSConfigured():
		ok("SMS alerts via Twilio from " + cfg.TwilioFromPhone)
	case cfg.TwilioAccountSID != "" || cfg.TwilioAuthToken != "" || cfg.TwilioFromPhone != "":
		warn("Twilio settings incomplete: need TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_PHONE")
	}
	if cfg.SlackWebhook != "" {
		ok("Slack alerts enabled")
	}
	if !cfg.SMSConfigured() && cfg.SlackWebhook == "" {
		warn("no alert provider configured; alerts are only logged")
	}

	if cfg.OpsAddr != "" {
		ok("OPS_ADDR=" + cfg.OpsAddr)
		if len(cfg.OpsAdminKeys) == 0 {
			warn("OPS_ADMIN_KEYS empty: anyone reaching OPS_ADDR can trigger cycles")
		}
		for _, k := range append(append([]string{}, cfg.OpsPublicKeys...), cfg.OpsAdminKeys...) {
			if strings.TrimSpace(k) != k {
				warn("ops keys contain spaces; use comma-separated with no spaces, e.g. key1,key2")
				break
			}
		}
	}

	ok("preflight passed")
	return nil
}
