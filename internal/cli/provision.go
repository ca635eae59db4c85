package cli

import (
	"fmt"
	"runtime"

	"github.com/javanstorm/datadisk/internal/config"
	"github.com/javanstorm/datadisk/internal/disk"
	"github.com/javanstorm/datadisk/internal/guest"
	"github.com/javanstorm/datadisk/internal/logger"
	"github.com/javanstorm/datadisk/internal/timing"
	"github.com/javanstorm/datadisk/pkg/hypervisor"
	"github.com/spf13/cobra"
)

func newProvisionCmd(a *app) *cobra.Command {
	var showTiming bool

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create, attach and schedule formatting of the data disk",
		Long: `Provision the data disk for the current kitchen instance.

Steps, each aborting the run on failure:
  1. ensure the kitchen directory exists
  2. create the disk image if it does not exist yet
  3. attach the image to "SATA Controller" port 1 device 0 of the VM
  4. schedule the disk_setup provisioner that formats it in the guest

Running it again is safe: an existing image is reused and re-attached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runProvision(cmd, showTiming)
		},
	}

	cmd.Flags().BoolVar(&showTiming, "timing", false, "print a per-step timing report")

	return cmd
}

func (a *app) runProvision(cmd *cobra.Command, showTiming bool) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	out := cmd.OutOrStdout()

	problems := config.ValidateConfig(a.cfg)
	if config.HasFatal(problems) {
		return fmt.Errorf("invalid configuration:\n%s", config.FormatValidationErrors(problems))
	}
	for _, p := range problems {
		log.Warn("configuration warning", "field", p.Field, "message", p.Message)
	}

	driver, err := newDriver(a.cfg.VBoxManage)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "VBoxManage not found: %s\n", hypervisor.InstallHint(runtime.GOOS))
		return err
	}

	timer := timing.New()
	p := disk.NewProvisioner(a.cfg, driver, out, disk.WithTimer(timer))

	res, err := p.Run(ctx)
	if showTiming {
		timer.Report(out)
	}
	if err != nil {
		return err
	}

	at := res.Attachment
	fmt.Fprintf(out, "==> Disk attached to %s (%s port %d device %d)\n", at.VM, at.Controller, at.Port, at.Device)
	fmt.Fprintf(out, "==> Guest provisioner scheduled: %s\n", res.Manifest)
	fmt.Fprintf(out, "==> Add to the kitchen driver's vagrantfiles: %s\n",
		scheduler(res.Context).VagrantfilePath(guest.ProvisionerName))
	return nil
}
