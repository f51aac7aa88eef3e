// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/ExtMailer/ExtMailer/internal/config"
	"github.com/ExtMailer/ExtMailer/internal/logger"
)

var (
	configPath string // directory holding main.toml
	envFile    string // optional .env file loaded before the configuration

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "extmailer",
		Short: "ExtMailer manages the global extended e-mail notification configuration",
		Long: `ExtMailer is a small administrative web service that owns the global
configuration of extended build notification e-mail: default recipients,
reply-to, subject and body templates, list headers and advanced mail
properties, guarded by role based permissions.`,
		Args:              cobra.OnlyValidArgs,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
)

func init() { //nolint:gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "etc", "directory holding "+config.MainConfigFile)
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file first")
}

func loadConfig(_ *cobra.Command, _ []string) error {
	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
	}

	var err error
	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	return logger.Init(cfg.Log)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
