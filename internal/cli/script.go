package cli

import (
	"fmt"

	"github.com/javanstorm/datadisk/internal/config"
	"github.com/javanstorm/datadisk/internal/guest"
	"github.com/spf13/cobra"
)

func newScriptCmd(a *app) *cobra.Command {
	var manifest, vagrantfile bool

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Print the guest formatting script",
		Long: `Print the PowerShell script the disk_setup provisioner runs on every boot.

With --manifest, print the provisioner definition instead, with the script
inlined. With --vagrantfile, print the Vagrantfile fragment that provision
writes next to the script; list that file under the kitchen driver's
vagrantfiles setting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			prov, err := guest.NewFormatProvisioner(guestParams(a))
			if err != nil {
				return err
			}

			switch {
			case vagrantfile:
				pc := config.Resolve(a.cfg)
				prov.Inline = ""
				prov.Path = scheduler(pc).ScriptPath(prov.Name)
				fragment, err := guest.RenderVagrantfile(prov)
				if err != nil {
					return err
				}
				fmt.Fprint(out, fragment)
				return nil
			case manifest:
				data, err := guest.MarshalManifest(prov)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			default:
				fmt.Fprint(out, prov.Inline)
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&manifest, "manifest", false, "print the provisioner manifest")
	cmd.Flags().BoolVar(&vagrantfile, "vagrantfile", false, "print the Vagrantfile fragment")
	cmd.MarkFlagsMutuallyExclusive("manifest", "vagrantfile")

	return cmd
}

func guestParams(a *app) guest.Params {
	return guest.Params{
		DriveLetter:    a.cfg.DriveLetter,
		FileSystem:     a.cfg.FileSystem,
		Label:          a.cfg.Label,
		PartitionStyle: a.cfg.PartitionStyle,
	}
}

// scheduler is where provision places the guest files for pc.
func scheduler(pc config.ProvisioningContext) guest.FileScheduler {
	return guest.FileScheduler{Dir: pc.ProvisionerDir(), Instance: pc.InstanceName}
}
