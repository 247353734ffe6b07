package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scottpeterman/velocitycollector/internal/discovery"
	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store/sqlite"
)

var (
	discoverPassword  string
	discoverMaxWorker int
	discoverRate      float64
	discoverTimeout   time.Duration
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Probe the inventory's active devices against every unlocked credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(context.Background(), cfgFile)
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.unlock(discoverPassword); err != nil {
			return err
		}
		defer rt.session.Lock()

		inv := sqlite.NewInventoryStore()
		devices, err := inv.GetDevices(rt.ctx, rt.inventoryDB, model.DeviceFilter{Status: model.DeviceStatusActive})
		if err != nil {
			return fmt.Errorf("list devices: %w", err)
		}

		infos, err := rt.session.ListInfo(rt.ctx)
		if err != nil {
			return err
		}
		candidates := make([]discovery.Candidate, 0, len(infos))
		for _, info := range infos {
			creds, ok := rt.session.GetByID(info.ID)
			if !ok {
				continue
			}
			candidates = append(candidates, discovery.Candidate{ID: info.ID, Name: info.Name, Creds: creds})
		}

		engine := discovery.New(discovery.DefaultConnector(), inv)
		result := engine.Discover(rt.ctx, rt.inventoryDB, devices, candidates, discovery.Options{
			MaxWorkers:       discoverMaxWorker,
			RatePerSecond:    discoverRate,
			PerDeviceTimeout: discoverTimeout,
		})

		for _, d := range result.Devices {
			if d.Success {
				cmd.Printf("%s %-20s %s (%s)\n", colorGreen+"✓"+colorReset, d.Device.Name, d.CredentialName, d.Category)
			} else {
				cmd.Printf("%s %-20s %s\n", colorRed+"✗"+colorReset, d.Device.Name, d.Error)
			}
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverPassword, "password", "", "vault password (or set VCOLLECTOR_VAULT_PASSWORD)")
	discoverCmd.Flags().IntVar(&discoverMaxWorker, "max-workers", 8, "concurrent probe workers")
	discoverCmd.Flags().Float64Var(&discoverRate, "rate", 5, "probes per second")
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 10*time.Second, "per-device probe timeout")
	rootCmd.AddCommand(discoverCmd)
}
