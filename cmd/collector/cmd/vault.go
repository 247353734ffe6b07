package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

var (
	vaultPassword    string
	vaultCredName    string
	vaultCredUser    string
	vaultCredDefault bool
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the encrypted credential store",
}

var vaultInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new vault with a master password",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(context.Background(), cfgFile)
		if err != nil {
			return err
		}
		defer rt.close()

		password := vaultPassword
		if password == "" {
			password = os.Getenv("VCOLLECTOR_VAULT_PASSWORD")
		}
		if password == "" {
			return store.Wrap(store.KindConfigError, "vault init", fmt.Errorf("vault password required: pass --password or set VCOLLECTOR_VAULT_PASSWORD"))
		}

		if err := rt.session.InitVault(rt.ctx, password); err != nil {
			return err
		}
		cmd.Println(colorGreen + "vault initialized" + colorReset)
		return nil
	},
}

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credential metadata (no secrets unlocked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(context.Background(), cfgFile)
		if err != nil {
			return err
		}
		defer rt.close()

		infos, err := rt.session.ListInfo(rt.ctx)
		if err != nil {
			return err
		}
		for _, i := range infos {
			def := ""
			if i.IsDefault {
				def = colorCyan + " (default)" + colorReset
			}
			cmd.Printf("%-6d %-20s %-12s key=%v pass=%v%s\n", i.ID, i.Name, i.Username, i.HasSSHKey, i.HasPassword, def)
		}
		return nil
	},
}

var vaultAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a credential, prompting for a password on stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		if vaultCredName == "" || vaultCredUser == "" {
			return store.Wrap(store.KindConfigError, "vault add", fmt.Errorf("--name and --username are required"))
		}

		rt, err := newRuntime(context.Background(), cfgFile)
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.unlock(vaultPassword); err != nil {
			return err
		}
		defer rt.session.Lock()

		cmd.Print("device password (leave blank if key-only): ")
		reader := bufio.NewReader(os.Stdin)
		devicePassword, _ := reader.ReadString('\n')
		devicePassword = strings.TrimSpace(devicePassword)

		id, err := rt.session.AddCredential(rt.ctx, vaultCredName, model.SSHCredentials{
			Username: vaultCredUser,
			Password: devicePassword,
		}, vaultCredDefault)
		if err != nil {
			return err
		}
		cmd.Printf("%sadded credential %q (id=%d)%s\n", colorGreen, vaultCredName, id, colorReset)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{vaultInitCmd, vaultListCmd, vaultAddCmd} {
		c.Flags().StringVar(&vaultPassword, "password", "", "vault password (or set VCOLLECTOR_VAULT_PASSWORD)")
	}
	vaultAddCmd.Flags().StringVar(&vaultCredName, "name", "", "credential name")
	vaultAddCmd.Flags().StringVar(&vaultCredUser, "username", "", "device username")
	vaultAddCmd.Flags().BoolVar(&vaultCredDefault, "default", false, "mark as the default credential")

	vaultCmd.AddCommand(vaultInitCmd, vaultListCmd, vaultAddCmd)
	rootCmd.AddCommand(vaultCmd)
}
