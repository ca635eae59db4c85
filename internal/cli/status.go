package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/javanstorm/datadisk/internal/config"
	"github.com/javanstorm/datadisk/internal/disk"
	"github.com/javanstorm/datadisk/internal/guest"
	"github.com/javanstorm/datadisk/pkg/hypervisor"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// GuestPasswordEnv supplies the guest password for status --guest.
const GuestPasswordEnv = "DATADISK_GUEST_PASSWORD"

// powershellExe is the guest path used for guestcontrol runs.
const powershellExe = `C:\Windows\System32\WindowsPowerShell\v1.0\powershell.exe`

// readPassword prompts on the terminal. Tests replace it.
var readPassword = func(prompt string, w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no guest password: set %s", GuestPasswordEnv)
	}
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

type statusOptions struct {
	guest     bool
	guestUser string
}

func newStatusCmd(a *app) *cobra.Command {
	var opts statusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show data disk status",
		Long: `Display the resolved paths for the current instance, whether the disk
image and run record exist, and which VBoxManage would be used.

With --guest, query the running guest through the guest additions and
report what the boot script will do on the next boot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStatus(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.guest, "guest", false, "inspect the guest's disks through guestcontrol")
	cmd.Flags().StringVar(&opts.guestUser, "guest-user", "vagrant", "guest account for guestcontrol")

	return cmd
}

func (a *app) runStatus(cmd *cobra.Command, opts statusOptions) error {
	out := cmd.OutOrStdout()
	pc := config.Resolve(a.cfg)

	fmt.Fprintf(out, "Instance:     %s\n", pc.InstanceName)
	fmt.Fprintf(out, "Project root: %s\n", pc.ProjectRoot)
	fmt.Fprintf(out, "Kitchen dir:  %s\n", pc.KitchenDir)
	fmt.Fprintf(out, "VM:           %s\n", orNone(a.cfg.VMID))
	fmt.Fprintln(out)

	if info, err := os.Stat(pc.DiskFile); err == nil {
		fmt.Fprintf(out, "Disk: %s (%s on host)\n", pc.DiskFile, datasize.ByteSize(info.Size()).HumanReadable())
	} else {
		fmt.Fprintf(out, "Disk: %s (not created)\n", pc.DiskFile)
	}

	rec, err := disk.NewRecordFile(pc.RecordFile()).Load()
	switch {
	case err != nil:
		fmt.Fprintf(out, "Last run: unreadable record (%v)\n", err)
	case rec.AttachCount == 0:
		fmt.Fprintln(out, "Last run: never")
	default:
		fmt.Fprintf(out, "Last run: attached to %s at %s (%d runs)\n",
			rec.VM, rec.LastAttach.Local().Format("2006-01-02 15:04:05"), rec.AttachCount)
		if rec.CreatedAt != nil {
			fmt.Fprintf(out, "Created: %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		if rec.Manifest != "" {
			fmt.Fprintf(out, "Provisioner: %s\n", rec.Manifest)
		}
	}
	fmt.Fprintln(out)

	driver, err := newDriver(a.cfg.VBoxManage)
	if err != nil {
		fmt.Fprintf(out, "VBoxManage: unavailable (%v)\n", err)
		fmt.Fprintf(out, "  %s\n", hypervisor.InstallHint(runtime.GOOS))
		if opts.guest {
			return err
		}
		return nil
	}

	info, err := driver.Info(cmd.Context())
	if err != nil {
		fmt.Fprintf(out, "VBoxManage: %s (version unknown: %v)\n", info.Path, err)
	} else {
		fmt.Fprintf(out, "VBoxManage: %s (%s)\n", info.Path, info.Version)
	}

	if !opts.guest {
		return nil
	}
	fmt.Fprintln(out)
	return a.guestStatus(cmd.Context(), cmd, driver, opts)
}

func (a *app) guestStatus(ctx context.Context, cmd *cobra.Command, driver hypervisor.Driver, opts statusOptions) error {
	out := cmd.OutOrStdout()

	if a.cfg.VMID == "" {
		return hypervisor.ErrMissingVM
	}

	password := os.Getenv(GuestPasswordEnv)
	if password == "" {
		var err error
		password, err = readPassword(fmt.Sprintf("Password for %s@%s: ", opts.guestUser, a.cfg.VMID), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	raw, err := driver.GuestRun(ctx, hypervisor.GuestCommand{
		VM:       a.cfg.VMID,
		Username: opts.guestUser,
		Password: password,
		Exe:      powershellExe,
		Args:     []string{"-NoProfile", "-NonInteractive", "-Command", guest.DiskQuery},
	})
	if err != nil {
		var cmdErr *hypervisor.CommandError
		if errors.As(err, &cmdErr) {
			return fmt.Errorf("query guest disks (are the guest additions running?): %w", err)
		}
		return fmt.Errorf("query guest disks: %w", err)
	}

	inv, err := guest.ParseInventory(raw)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Guest disks (%s):\n", guest.StateOf(inv.Disks))
	for _, d := range inv.Disks {
		fmt.Fprintf(out, "  %d  %-6s %10s  %s\n",
			d.Number, d.PartitionStyle, datasize.ByteSize(d.Size).HumanReadable(), strings.TrimSpace(d.FriendlyName))
	}
	if len(inv.Volumes) > 0 {
		fmt.Fprintln(out, "Guest volumes:")
		for _, v := range inv.Volumes {
			owner := "-"
			if v.DiskNumber != nil {
				owner = fmt.Sprintf("disk %d", *v.DiskNumber)
			}
			fmt.Fprintf(out, "  %s:  %-6s %-8s %s\n", v.DriveLetter, v.FileSystem, owner, v.Label)
		}
	}

	_, res, err := guest.Reconcile(inv, guestParams(a))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Next boot: %s (%s)\n", res.Message, res.Outcome)
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
