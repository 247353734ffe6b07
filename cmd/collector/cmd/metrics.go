package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/scottpeterman/velocitycollector/internal/config"
	"github.com/scottpeterman/velocitycollector/internal/observability"
)

var metricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Expose the Prometheus /metrics endpoint and block",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		handler, _, shutdown, err := observability.InitMetrics()
		if err != nil {
			return err
		}
		defer shutdown(cmd.Context())

		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)

		addr := fmt.Sprintf(":%d", cfg.MetricsPort)
		cmd.Printf("serving metrics on %s/metrics\n", addr)
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}
