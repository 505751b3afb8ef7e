package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jasmincar/milo-lab/internal/config"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	httpapi "github.com/jasmincar/milo-lab/internal/interfaces/http"
	"github.com/jasmincar/milo-lab/internal/interfaces/http/handlers"
	"github.com/jasmincar/milo-lab/internal/interfaces/http/middleware"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: "Serves the compound and reaction API, health probes and Prometheus\n" +
			"metrics until SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cliCtx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default: server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default: server.port)")
	return cmd
}

// runServer serves until ctx ends, then drains in-flight requests.
func runServer(ctx context.Context, cliCtx *CLIContext) error {
	cfg, logger := cliCtx.Config, cliCtx.Logger
	gin.SetMode(cfg.Server.Mode)

	rt, err := runtimeFor(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer rt.Close()

	server := httpapi.NewServer(cfg.Server, NewHTTPHandler(rt, cliCtx.Verbose), logger.Named("http"))
	watchConfig(cliCtx)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return server.Stop(context.WithoutCancel(ctx))
}

// NewHTTPHandler builds the gin engine over rt.
func NewHTTPHandler(rt *Runtime, verbose bool) *gin.Engine {
	var cors *middleware.CORSConfig
	if origins := rt.Config.Server.CORSOrigins; len(origins) > 0 {
		c := middleware.DefaultCORSConfig()
		c.AllowedOrigins = origins
		cors = &c
	}
	logCfg := middleware.DefaultLoggingConfig()
	if verbose {
		logCfg.SkipPaths = nil
	}

	return httpapi.NewRouter(httpapi.RouterConfig{
		CompoundHandler:  handlers.NewCompoundHandler(rt.Service, rt.Logger.Named("compounds")),
		ReactionHandler:  handlers.NewReactionHandler(rt.Service, rt.Logger.Named("reactions")),
		HealthHandler:    handlers.NewHealthHandler(Version, rt.Checks...),
		CORS:             cors,
		Logging:          logCfg,
		Logger:           rt.Logger.Named("http"),
		Metrics:          rt.Metrics,
		MetricsCollector: rt.Collector,
	})
}

// watchConfig reports edits of the config file. Settings are read once at
// startup, so a change takes effect on restart.
func watchConfig(cliCtx *CLIContext) {
	if cliCtx.ConfigPath == "" {
		return
	}
	logger := cliCtx.Logger
	current := cliCtx.Config
	err := config.Watch(cliCtx.ConfigPath, func(next *config.Config) {
		logger.Warn("config file changed; restart to apply",
			logging.String("path", cliCtx.ConfigPath),
			logging.Bool("conditions_changed", next.Thermo.Conditions != current.Thermo.Conditions),
			logging.Bool("server_changed", fmt.Sprint(next.Server) != fmt.Sprint(current.Server)))
	}, func(err error) {
		logger.Error("config file change rejected", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}

//Personal.AI order the ending
