package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/franksops/sendwire/config"
	"github.com/franksops/sendwire/provider"
)

var (
	cfgPath  string
	logLevel string

	cfg *config.Config
	log = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:   "sendwire",
		Short: "Stream file sequences over raw TCP with zero-copy transfers",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			level, err := logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
			}
			log.SetLevel(level)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to yaml config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newSendCmd())
	root.AddCommand(newRecvCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newProvider resolves a path or s3://bucket/prefix URL into a provider and
// the in-provider path to act on.
func newProvider(cmd *cobra.Command, raw string) (provider.Provider, string, error) {
	if strings.HasPrefix(raw, "s3://") {
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(raw, "s3://"), "/")
		p, err := provider.NewS3Provider(cmd.Context(), bucket, prefix)
		if err != nil {
			return nil, "", err
		}
		return p, "", nil
	}
	return provider.NewLocalProvider("").WithMetadataMapper(provider.NewMetadataMapper()), raw, nil
}
