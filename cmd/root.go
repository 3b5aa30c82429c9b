// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/workd-cli/internal/config"
	"github.com/xkilldash9x/workd-cli/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// NewRootCommand builds a fresh command tree. Each call returns independent
// flag state.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "workd-cli",
		Short:         "Bulk account management for the workD portal.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("failed to load or validate config: %w", err)
			}
			applyFlagOverrides(cmd.Flags(), cfg)

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting workd-cli", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	flags.Bool("headless", true, "run the browser without a window")
	flags.Duration("slow-motion", 0, "minimum delay between two UI actions")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newListCmd(), newImportCmd(), newVersionCmd())
	return rootCmd
}

// Execute runs the command tree and reports a failure on stderr in the
// operator-facing form of its kind.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	defer observability.Sync()
	if err == nil {
		return nil
	}

	reported := reportError(err)
	if !errors.Is(err, context.Canceled) {
		observability.GetLogger().Debug("Command failed", zap.Error(err))
	}
	fmt.Fprintln(os.Stderr, "Error:", reported)
	return reported
}

// initializeConfig reads the config file and environment into v. The
// --log-level flag is bound so it only wins when given explicitly.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	config.BindEnv(v)

	if err := v.BindPFlag("logger.level", cmd.Flags().Lookup("log-level")); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// applyFlagOverrides copies browser flags the operator set explicitly.
func applyFlagOverrides(flags *pflag.FlagSet, cfg config.Interface) {
	if flags.Changed("headless") {
		headless, _ := flags.GetBool("headless")
		cfg.SetBrowserHeadless(headless)
	}
	if flags.Changed("slow-motion") {
		d, _ := flags.GetDuration("slow-motion")
		cfg.SetBrowserSlowMotion(d)
	}
}

func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not initialized")
	}
	return cfg, nil
}
