// Package serve runs the HTTP API
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"smart-budget-planner/cmd/root"
	"smart-budget-planner/internal/api"
	"smart-budget-planner/internal/config"

	"github.com/spf13/cobra"
)

var addr string

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the forecast and transaction API over HTTP",
	Long: `Serve the forecast and transaction API over HTTP.

Endpoints:
  POST /forecast        forecast the current month against a budget
  GET  /transactions    list the caller's transactions (?from=YYYY-MM-DD&to=YYYY-MM-DD)
  POST /transactions    record a transaction
  GET  /healthz         liveness probe

Callers authenticate with "Authorization: Bearer <token>".

Example:
  budget-planner serve --addr :8080`,
	RunE: serveFunc,
}

func init() {
	Cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
}

func serveFunc(cmd *cobra.Command, args []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := root.GetContainer(ctx)
	if err != nil {
		return err
	}

	srv := api.NewServer(ServerConfig(c.GetConfig(), addr),
		c.GetResolver(), c.GetOrchestrator(), c.GetTransactions(), c.GetLogger())
	return srv.Run(ctx)
}

// ServerConfig maps the server section onto the listener settings.
func ServerConfig(cfg *config.Config, addrOverride string) api.Config {
	sc := api.Config{
		Addr:              cfg.Server.Addr,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
		Burst:             cfg.Server.RateLimit.Burst,
	}
	if addrOverride != "" {
		sc.Addr = addrOverride
	}
	return sc
}
