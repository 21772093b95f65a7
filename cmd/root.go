package cmd

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/josephlewis42/pipesh/core"
	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/shell"
	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	commandLine string
)

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "pipesh")
}

// loadConfig loads the configuration, falling back to the defaults if none
// has been written.
func loadConfig(errLog *log.Logger) (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		errLog.Printf("No config in %s, using defaults. Run init to create one.", cfgPath)
		return config.Default(), nil
	}
	return configuration, err
}

// openEvents opens the configured event log, the returned close func is
// always safe to call.
func openEvents(cfg *config.Configuration, errLog *log.Logger) (logger.Recorder, func()) {
	if !cfg.EventLogEnabled() {
		return nil, func() {}
	}

	fd, err := cfg.OpenEventLog()
	if err != nil {
		errLog.Printf("Couldn't open event log: %v", err)
		return nil, func() {}
	}
	return logger.NewJsonLinesLogRecorder(fd).NewSession(), func() { fd.Close() }
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pipesh",
	Short: "A small pipeline shell",
	Long: `A small POSIX-style shell that runs pipelines of programs with
redirects, background jobs and a handful of builtins.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		errLog := log.New(cmd.ErrOrStderr(), "pipesh: ", 0)
		cfg, err := loadConfig(errLog)
		if err != nil {
			return err
		}

		events, closeEvents := openEvents(cfg, errLog)
		ctx := cmd.Context()

		sh := core.NewShell(cfg, shell.StdIO{
			Stdin:  os.Stdin,
			Stdout: os.Stdout,
			Stderr: os.Stderr,
		}, core.WithEvents(events))

		var status int
		if cmd.Flags().Changed("command") {
			status = sh.Execute(ctx, commandLine)
		} else {
			status = sh.Run(ctx)
		}

		// os.Exit skips deferred calls.
		closeEvents()
		if status != 0 {
			os.Exit(status)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "config path")
	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run a single line and exit with its status")
}
