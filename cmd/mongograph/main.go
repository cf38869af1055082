// Command mongograph serves a GraphQL API generated from document models
// stored in MongoDB.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hanpama/mongograph/internal/config"
	"github.com/hanpama/mongograph/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mongograph:", err)
		os.Exit(1)
	}
}

// rootOptions holds the global flags.
type rootOptions struct {
	envFiles []string
	logLevel string
	logger   *logrus.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "mongograph",
		Short: "GraphQL API generated from MongoDB document models",
		Long: `mongograph reads document model files, generates GraphQL types and
CRUD resolvers for them and serves the composed schema over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Logged once the level is known.
			loaded := config.LoadEnv(nil, opts.envFiles...)
			if !cmd.Flags().Changed("log-level") {
				opts.logLevel = config.GetEnv("LOG_LEVEL", opts.logLevel)
			}
			opts.logger = logging.NewWithOutput(cmd.ErrOrStderr(), opts.logLevel)
			if len(loaded) > 0 {
				opts.logger.WithField("files", loaded).Debug("loaded env files")
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newCompileSDLCommand(opts))
	return cmd
}
