package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rcliao/seiqhcdro/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation API over HTTP",
		Long:  "Serve POST /v1/simulate, presets, saved runs, /healthz and Prometheus /metrics.",
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default from config, :8080)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if cfg.Level() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := server.NewHandlers(s, cfg.SolverOptions(), slog.Default())
	if err := server.Serve(ctx, addr, server.NewRouter(h), slog.Default()); err != nil {
		exitErr("serve", err)
	}
}
