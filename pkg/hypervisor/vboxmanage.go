package hypervisor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often a blocked EnsureMedium polls the lock.
const lockRetryDelay = 250 * time.Millisecond

// vboxDriver implements Driver by shelling out to VBoxManage.
type vboxDriver struct {
	bin    string
	runner Runner
}

// New returns a Driver that invokes bin through runner.
func New(bin string, runner Runner) Driver {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &vboxDriver{bin: bin, runner: runner}
}

func (d *vboxDriver) Info(ctx context.Context) (Info, error) {
	info := Info{Name: "virtualbox", Path: d.bin}
	out, err := d.runner.Run(ctx, d.bin, "--version")
	if err != nil {
		return info, fmt.Errorf("query version: %w", err)
	}
	info.Version = strings.TrimSpace(string(out))
	return info, nil
}

func (d *vboxDriver) EnsureMedium(ctx context.Context, cfg MediumConfig) (bool, error) {
	if err := cfg.Validate(); err != nil {
		return false, err
	}

	lockPath := cfg.Path + ".lock"
	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return false, fmt.Errorf("lock medium: %w", err)
	}
	if !locked {
		return false, ErrLockTimeout
	}

	created, err := d.createIfAbsent(ctx, cfg)
	if unlockErr := lock.Unlock(); unlockErr != nil && err == nil {
		err = fmt.Errorf("unlock medium: %w", unlockErr)
	}
	if err != nil {
		return false, err
	}

	// Once the medium exists every later caller returns at the stat, so
	// the lock file is no longer needed.
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return created, fmt.Errorf("remove medium lock: %w", err)
	}
	return created, nil
}

func (d *vboxDriver) createIfAbsent(ctx context.Context, cfg MediumConfig) (bool, error) {
	if _, err := os.Stat(cfg.Path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat medium: %w", err)
	}

	_, err := d.runner.Run(ctx, d.bin,
		"createhd",
		"--filename", cfg.Path,
		"--size", strconv.FormatInt(cfg.SizeMB, 10),
	)
	if err != nil {
		return false, fmt.Errorf("create medium: %w", err)
	}
	return true, nil
}

func (d *vboxDriver) AttachStorage(ctx context.Context, a Attachment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := d.runner.Run(ctx, d.bin,
		"storageattach", a.VM,
		"--storagectl", a.Controller,
		"--port", strconv.Itoa(a.Port),
		"--device", strconv.Itoa(a.Device),
		"--type", a.Type,
		"--medium", a.Medium,
	)
	if err != nil {
		return fmt.Errorf("attach storage: %w", err)
	}
	return nil
}

func (d *vboxDriver) GuestRun(ctx context.Context, cmd GuestCommand) ([]byte, error) {
	if cmd.VM == "" {
		return nil, ErrMissingVM
	}
	if cmd.Exe == "" {
		return nil, errors.New("hypervisor: guest executable is required")
	}

	args := []string{"guestcontrol", cmd.VM, "run", "--exe", cmd.Exe}
	if cmd.Username != "" {
		args = append(args, "--username", cmd.Username)
	}
	if cmd.Password != "" {
		// Passed through a file so it never shows up in the process list.
		path, err := writePasswordFile(cmd.Password)
		if err != nil {
			return nil, err
		}
		defer os.Remove(path)
		args = append(args, "--passwordfile", path)
	}
	// argv[0] follows the separator when --exe is given.
	args = append(args, "--wait-stdout", "--", cmd.Exe)
	args = append(args, cmd.Args...)

	out, err := d.runner.Run(ctx, d.bin, args...)
	if err != nil {
		return nil, fmt.Errorf("guest run: %w", err)
	}
	return out, nil
}

// writePasswordFile stores password in a new file readable only by the
// current user and returns its path.
func writePasswordFile(password string) (string, error) {
	f, err := os.CreateTemp("", "datadisk-guest-*")
	if err != nil {
		return "", fmt.Errorf("create password file: %w", err)
	}
	path := f.Name()

	if err := f.Chmod(0600); err != nil && runtime.GOOS != "windows" {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("create password file: %w", err)
	}
	if _, err := f.WriteString(password); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write password file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write password file: %w", err)
	}
	return path, nil
}
