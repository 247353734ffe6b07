package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	vbatch "github.com/scottpeterman/velocitycollector/internal/batch"
	"github.com/scottpeterman/velocitycollector/internal/job"
	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
	"github.com/scottpeterman/velocitycollector/pkg/api"
)

var (
	batchPassword string
	batchJobsDir  string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run an ordered batch of job descriptors",
}

var batchRunCmd = &cobra.Command{
	Use:   "run [batch.yaml]",
	Short: "Execute a batch descriptor's jobs in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := vbatch.LoadFile(args[0])
		if err != nil {
			return store.Wrap(store.KindConfigError, "batch run", err)
		}

		rt, err := newRuntime(context.Background(), cfgFile)
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.unlock(batchPassword); err != nil {
			return err
		}
		defer rt.session.Lock()

		dbs := job.Stores{Inventory: rt.inventoryDB, Templates: rt.templateDB, History: rt.historyDB}

		runner := vbatch.New()
		result := runner.Run(rt.ctx, b, func(ctx context.Context, slug string) (job.Result, error) {
			jobModel, err := loadJobBySlug(batchJobsDir, slug)
			if err != nil {
				return job.Result{}, err
			}
			return rt.runner.Run(ctx, dbs, jobModel, rt.session, "batch:"+b.Name)
		})

		printBatchResult(cmd, result)
		if result.JobsFailed > 0 || result.JobsPartial > 0 {
			os.Exit(1)
		}
		return nil
	},
}

func loadJobBySlug(jobsDir, slug string) (model.Job, error) {
	path := filepath.Join(jobsDir, slug+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Job{}, store.Wrap(store.KindConfigError, "batch run", fmt.Errorf("load job %q: %w", slug, err))
	}
	descriptor, err := api.ParseJob(data)
	if err != nil {
		return model.Job{}, store.Wrap(store.KindConfigError, "batch run", err)
	}
	jobModel, err := descriptor.ToModel()
	if err != nil {
		return model.Job{}, store.Wrap(store.KindConfigError, "batch run", err)
	}
	return jobModel, nil
}

func printBatchResult(cmd *cobra.Command, result vbatch.Result) {
	cmd.Printf("%sbatch %s%s\n", colorBold, result.Name, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sJobs:%s       %d attempted, %d succeeded, %d partial, %d failed, %d cancelled\n",
		colorDim, colorReset, result.JobsAttempted, result.JobsSucceeded, result.JobsPartial, result.JobsFailed, result.JobsCancelled)
	cmd.Printf("%sDevices:%s    %d total, %d success, %d failed, %d skipped\n",
		colorDim, colorReset, result.TotalDevices, result.TotalSuccess, result.TotalFailed, result.TotalSkipped)
	cmd.Printf("%sDuration:%s   %s\n", colorDim, colorReset, formatDuration(result.Duration))

	for _, j := range result.Jobs {
		cmd.Printf("  %s %s\n", string(j.Status), j.Slug)
	}
}

func init() {
	batchRunCmd.Flags().StringVar(&batchPassword, "password", "", "vault password (or set VCOLLECTOR_VAULT_PASSWORD)")
	batchRunCmd.Flags().StringVar(&batchJobsDir, "jobs-dir", "./jobs", "directory containing <slug>.json job descriptors")
	batchCmd.AddCommand(batchRunCmd)
	rootCmd.AddCommand(batchCmd)
}
