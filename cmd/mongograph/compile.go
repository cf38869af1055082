package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hanpama/mongograph/internal/config"
	"github.com/hanpama/mongograph/internal/docschema"
	"github.com/hanpama/mongograph/internal/store/memstore"
)

func newCompileSDLCommand(rootOpts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "compile-sdl [model files...]",
		Short: "Print the SDL of the schema composed from model files",
		Long: `Compose the GraphQL schema for the given model files and print its SDL.
Model files default to MONGOGRAPH_MODELS. No database connection is made.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if len(args) == 0 {
				args = cfg.Models
			}
			if len(args) == 0 {
				return fmt.Errorf("no model files given")
			}
			models, err := docschema.LoadFiles(args...)
			if err != nil {
				return err
			}
			exe, err := buildSchema(models, memstore.New(), cfg.DefaultLimit, cfg.MaxLimit)
			if err != nil {
				return fmt.Errorf("build schema: %w", err)
			}
			rootOpts.logger.WithField("models", len(models)).Debug("schema composed")
			sdl := exe.SDL()
			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), sdl)
				return err
			}
			return os.WriteFile(out, []byte(sdl), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the SDL to a file instead of stdout")
	return cmd
}
