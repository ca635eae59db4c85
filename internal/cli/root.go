// Package cli provides the command-line interface for datadisk.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/javanstorm/datadisk/internal/config"
	"github.com/javanstorm/datadisk/internal/logger"
	"github.com/javanstorm/datadisk/pkg/hypervisor"
	"github.com/spf13/cobra"
)

// newDriver locates VBoxManage. Tests replace it with a fake.
var newDriver = hypervisor.NewDriver

// app holds state shared by the commands of one invocation.
type app struct {
	configFile  string
	projectRoot string
	cfg         *config.Config
}

// NewRootCmd builds the datadisk command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "datadisk",
		Short: "Attach a data disk to a Test Kitchen VirtualBox VM",
		Long: `datadisk gives a Test Kitchen managed VirtualBox VM a secondary data disk.

It creates .kitchen/data_disk_<instance>.vdi once, attaches it to the VM's
SATA controller on every run, and schedules a PowerShell provisioner that
initializes and formats the disk inside the guest until it is no longer RAW.

The instance is taken from KITCHEN_INSTANCE_NAME, like Test Kitchen does.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&a.configFile, "config", "", "config file (default: datadisk.yaml in the project root or kitchen dir)")
	f.StringVar(&a.projectRoot, "project-root", "", "project directory holding the kitchen definition (default: current directory)")
	f.String("kitchen-dir", "", "kitchen state directory (default: <project-root>/.kitchen)")
	f.String("instance-name", "", "kitchen instance name (default: $"+config.InstanceEnv+" or \"default\")")
	f.String("vm-id", "", "VirtualBox VM name or UUID to attach the disk to")
	f.String("disk-size", "50GB", "size of a newly created disk")
	f.String("vboxmanage", "", "path to VBoxManage (default: lookup in PATH)")
	f.String("drive-letter", "D", "guest drive letter for the data volume")
	f.String("filesystem", "NTFS", "guest filesystem for the data volume")
	f.String("label", "Data", "guest volume label")
	f.String("partition-style", "GPT", "guest partition style (GPT or MBR)")
	f.String("log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(newProvisionCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newScriptCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// load reads configuration and installs the logger for every command
// that needs them.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	switch cmd.Name() {
	case "version", "completion", "help":
		return nil
	}

	cfg, err := config.Load(config.LoadOptions{
		ProjectRoot: a.projectRoot,
		ConfigFile:  a.configFile,
		Flags:       cmd.Flags(),
	})
	if err != nil {
		return err
	}

	log, err := logger.New(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.AddToContext(ctx, log))
	a.cfg = cfg
	return nil
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}
