// Command modelagg-cli is the operator tool for the model aggregator:
// validate a config file, print version info, or trigger a running
// server's /api/clear.
package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	modelagg "github.com/nimbus-labs/model-aggregator"
	"github.com/nimbus-labs/model-aggregator/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "modelagg-cli",
		Short: "Operator tool for the model aggregator",
	}
	root.AddCommand(newValidateCmd(), newVersionCmd(), newClearCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a config file (JSON/YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := modelagg.LoadConfig(args[0])
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := modelagg.ValidateConfig(*cfg); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			var baseURLs []string
			for _, p := range cfg.Providers {
				baseURLs = append(baseURLs, p.BaseURL)
			}

			fmt.Println("config is valid")
			fmt.Printf("  brain:      %s (%s)\n", cfg.Brain.ID, cfg.Brain.BaseURL)
			fmt.Printf("  providers:  %s\n", strings.Join(baseURLs, ", "))
			fmt.Printf("  sources:    %d model_info_sources configured\n", len(cfg.ModelInfoSources))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version.String())
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Trigger a running server's /api/clear",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 10 * time.Second}
			url := strings.TrimRight(addr, "/") + "/api/clear"
			resp, err := client.Post(url, "application/json", nil)
			if err != nil {
				return fmt.Errorf("calling %s: %w", url, err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode >= 300 {
				return fmt.Errorf("%s responded with status %d", url, resp.StatusCode)
			}
			fmt.Println("catalog clear requested")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "base URL of the running server")
	return cmd
}
