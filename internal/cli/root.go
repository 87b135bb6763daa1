// Package cli holds the civil360 command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/civil360/civil360-api/internal/infrastructure/db/mongo"
	"github.com/civil360/civil360-api/internal/pkg/config"
	"github.com/civil360/civil360-api/pkg/logger"
)

const serviceName = "civil360-api"

var rootCmd = &cobra.Command{
	Use:           "civil360",
	Short:         "CIVIL360 construction management API",
	Long:          `Serves the CIVIL360 HTTP API and provides administrative commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError logs err through the process logger once bootstrap has run and
// writes it to w for failures before that point.
func reportError(w io.Writer, err error) {
	if logger.Initialized() {
		log := logger.Get()
		log.Error().Err(err).Msg("command failed")
		return
	}
	fmt.Fprintln(w, err)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
}

// bootstrap loads configuration and initialises the process logger.
func bootstrap(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: serviceName,
		Env:     cfg.Env,
	})
	return cfg, log, nil
}

func newMongoConnector(cfg *config.Config) *mongo.Connector {
	return mongo.NewConnector(mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
}
