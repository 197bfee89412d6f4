package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yegors/co-translate/internal/config"
	"github.com/yegors/co-translate/internal/storage/sqlite"
	"github.com/yegors/co-translate/pkg/logger"
)

// app carries what every subcommand needs after startup
type app struct {
	configPath string
	envFile    string
	cfg        *config.Config
	log        *logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "co-translate",
		Short: "Voice translator",
		Long: `co-translate listens to the microphone, transcribes each utterance,
detects its language, translates it to the selected target language and
keeps a local history of every translation.

Commands:
  serve      run the translator with its HTTP and websocket API
  history    list or clear stored translations
  languages  list selectable target languages
  devices    list capture devices`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Optional dotenv file with API keys")

	root.AddCommand(
		newServeCmd(a),
		newHistoryCmd(a),
		newLanguagesCmd(a),
		newDevicesCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg, err := config.LoadWithFallback(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	return nil
}

// openHistory opens the history database, or returns nil when history is
// disabled or no writable directory exists
func (a *app) openHistory() (*sqlite.HistoryStore, error) {
	path := a.cfg.HistoryPath()
	if path == "" {
		return nil, nil
	}
	return sqlite.NewHistoryStore(path, a.log)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
