package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/httpapi"
	apimw "github.com/hamed0406/uptimeworker/internal/httpapi/middleware"
	"github.com/hamed0406/uptimeworker/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the check and log rotation loops until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rc := a.rechecker()
	rot := a.rotator()
	w := scheduler.NewWorker(a.log, rc, scheduler.NewLogRotator(a.log, rot, a.cfg.RotationInterval))

	var ops *http.Server
	if a.cfg.OpsAddr != "" {
		api := httpapi.NewServer(a.log, rc, rot, a.logs)
		keys := apimw.Keys{Public: a.cfg.OpsPublicKeys, Admin: a.cfg.OpsAdminKeys}
		ops = &http.Server{
			Addr: a.cfg.OpsAddr,
			Handler: api.Router(keys, a.cfg.OpsCORSOrigins, httpapi.Limits{
				ReadRPM: a.cfg.OpsRPM, ReadBurst: a.cfg.OpsBurst,
				AdminRPM: a.cfg.OpsAdminRPM, AdminBurst: a.cfg.OpsAdminBurst,
			}),
		}
		go func() {
			a.log.Info("ops_listen", zap.String("addr", a.cfg.OpsAddr))
			if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("ops_listen_error", zap.Error(err))
			}
		}()
	}

	w.Run(ctx)

	if ops != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		if err := ops.Shutdown(sctx); err != nil {
			a.log.Warn("ops_shutdown_error", zap.Error(err))
		}
	}
	return nil
}
