package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scottpeterman/velocitycollector/internal/job"
	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
	"github.com/scottpeterman/velocitycollector/pkg/api"
)

var jobPassword string

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Run a single job descriptor",
}

var jobRunCmd = &cobra.Command{
	Use:   "run [descriptor.json]",
	Short: "Execute a job descriptor against its matching device set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return store.Wrap(store.KindConfigError, "job run", fmt.Errorf("read job descriptor: %w", err))
		}
		descriptor, err := api.ParseJob(data)
		if err != nil {
			return store.Wrap(store.KindConfigError, "job run", err)
		}
		jobModel, err := descriptor.ToModel()
		if err != nil {
			return store.Wrap(store.KindConfigError, "job run", err)
		}

		rt, err := newRuntime(context.Background(), cfgFile)
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.unlock(jobPassword); err != nil {
			return err
		}
		defer rt.session.Lock()

		dbs := job.Stores{Inventory: rt.inventoryDB, Templates: rt.templateDB, History: rt.historyDB}
		result, err := rt.runner.Run(rt.ctx, dbs, jobModel, rt.session, "cli")
		if err != nil {
			return fmt.Errorf("run job %s: %w", jobModel.Slug, err)
		}

		printJobResult(cmd, result)
		if result.Status == model.RunStatusFailed || result.Status == model.RunStatusPartial {
			os.Exit(1)
		}
		return nil
	},
}

func printJobResult(cmd *cobra.Command, result job.Result) {
	icon := statusIcon(result.Status)
	cmd.Printf("%s %sjob %s%s\n", icon, colorBold, result.JobSlug, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sStatus:%s     %s\n", colorDim, colorReset, colorizeStatus(result.Status))
	cmd.Printf("%sDevices:%s    %d total, %d success, %d failed, %d skipped\n",
		colorDim, colorReset, result.TotalDevices, result.SuccessCount, result.FailedCount, result.SkippedCount)
	cmd.Printf("%sDuration:%s   %s\n", colorDim, colorReset, formatDuration(result.Duration()))

	for _, e := range result.Errors {
		cmd.Printf("  %s%s%s: %s (%s)\n", colorRed, e.DeviceName, colorReset, e.Message, e.Kind)
	}
}

func init() {
	jobRunCmd.Flags().StringVar(&jobPassword, "password", "", "vault password (or set VCOLLECTOR_VAULT_PASSWORD)")
	jobCmd.AddCommand(jobRunCmd)
	rootCmd.AddCommand(jobCmd)
}
