// Package cli defines the command-line interface.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SSE4/conan-deploy-tool/internal/version"
	deploycmd "github.com/SSE4/conan-deploy-tool/pkg/commands/deploy"
	"github.com/SSE4/conan-deploy-tool/pkg/config"
	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/generators"
	"github.com/SSE4/conan-deploy-tool/pkg/logging"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var (
		gens        []string
		cfgFile     string
		showVersion bool
		verbosity   int
	)

	rootCmd := &cobra.Command{
		Use:   "conan-deploy-tool",
		Short: "Package conan dependencies into deployable bundles",
		Long: `conan-deploy-tool packages a conan-built project's runtime dependencies
into a deployable artifact: a plain directory, a compressed archive, a
self-extracting installer, an AppImage, or a flatpak bundle.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "conan-deploy-tool %s (commit %s, built %s)\n",
					version.Version, version.Commit, version.Date)
				return nil
			}
			if len(gens) == 0 {
				return errors.New(errors.ErrInvalidInput,
					"at least one -g/--generator is required")
			}
			workDir, err := os.Getwd()
			if err != nil {
				return errors.Wrap(err, errors.ErrInternal, "determining working directory")
			}
			return deploycmd.Deploy(cmd.Context(), deploycmd.Options{
				ConfigPath: cfgFile,
				Generators: gens,
				ProjectDir: workDir,
				OutputDir:  workDir,
			})
		},
	}

	rootCmd.Flags().StringArrayVarP(&gens, "generator", "g", nil,
		fmt.Sprintf("output format to produce, repeatable; one of: %s",
			strings.Join(generators.Names(), ", ")))
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", config.DefaultFileName,
		"deploy configuration file")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false,
		"print version information and exit")
	rootCmd.PersistentFlags().CountVar(&verbosity, "verbose",
		"Increase verbosity (--verbose INFO, --verbose --verbose DEBUG)")

	return rootCmd
}
