package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labelsense/labelsense/internal/config"
	"github.com/labelsense/labelsense/internal/daemon"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the LabelSense service",
	Long: `Run the LabelSense service in the foreground. The service accepts
label images over HTTP, runs the analysis pipeline, and answers follow-up
questions over HTTP and WebSocket until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}

	if err := d.Start(); err != nil {
		return err
	}

	d.Wait()
	return nil
}
