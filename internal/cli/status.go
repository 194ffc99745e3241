package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/labelsense/labelsense/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether a LabelSense service is reachable",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", cfg.Gateway.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		cmd.Printf("LabelSense is not running on port %d\n", cfg.Gateway.Port)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		cmd.Printf("LabelSense is running on port %d\n", cfg.Gateway.Port)
	} else {
		cmd.Printf("LabelSense responded with status %d on port %d\n", resp.StatusCode, cfg.Gateway.Port)
	}
	return nil
}
