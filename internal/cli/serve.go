package cli

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/compintel/internal/metrics"
	"github.com/ppiankov/compintel/internal/pipeline"
	"github.com/ppiankov/compintel/internal/server"
)

var servePort int

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the evaluation API over HTTP",
	Long: `Serve starts an HTTP server exposing:
  POST /v1/evaluate     evaluate one idea (same JSON as 'evaluate' output)
  GET  /v1/categories   supported categories and their providers
  GET  /health          LLM configuration and source breaker states
  GET  /metrics         Prometheus metrics

Example:
  compintel serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg.Server.Port = resolvePort(servePort, cfg.Server.Port)

		collector := metrics.NewCollector("compintel")
		p, err := pipeline.NewPipeline(cfg, logger, collector)
		if err != nil {
			return eris.Wrap(err, "create pipeline")
		}

		logger.Info("evaluation API configured",
			zap.Int("port", cfg.Server.Port),
			zap.String("llm", providerLabel(cfg.LLM)),
			zap.Int("categories", len(p.Router().Routes())))

		return server.New(p, collector, cfg.Server, logger).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// resolvePort prefers the flag over the configured port
func resolvePort(flagPort, configPort int) int {
	if flagPort > 0 {
		return flagPort
	}
	return configPort
}
