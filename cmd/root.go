package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	envFile   string
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:   "linkguard",
	Short: "Multi-protocol link risk scanner for HTTP(S), FTP and SSH targets",
	Long: `linkguard inspects a link, or a shell fetch command such as "curl ... | sh",
and reports a risk verdict built from reachability, TLS, domain registration,
page content, lexical shape and third-party reputation services.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}

		v := viper.GetViper()
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			v.AddConfigPath("$HOME")
			v.AddConfigPath(".")
			v.SetConfigName(".linkguard")
			v.SetConfigType("yaml")
		}
		bindEnvironment(v)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if cfgFile != "" || !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}

		loadFileConfig(v, cliConfig)
		applyConfigDefaults(v, cliConfig)

		logger, err := newLogger(debugMode, cmd.Annotations[annotationQuietLogs] == "true")
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		if used := v.ConfigFileUsed(); used != "" {
			logger.Debug("config loaded", zap.String("path", used))
		}

		storeAppContext(cmd, &AppContext{Logger: logger, Config: cliConfig})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, colorError(err.Error()))
		os.Exit(1)
	}
}

// loadEnvFile reads API keys from a dotenv file. A missing default file is
// not an error; a missing explicit one is.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// annotationQuietLogs raises the log level to warn for commands whose
// stdout carries reports.
const annotationQuietLogs = "linkguard/quiet-logs"

func newLogger(debug, quiet bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if quiet {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.linkguard.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with API keys (default is ./.env when present)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
