// Package testutil provides common test helpers for datadisk tests.
package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/javanstorm/datadisk/internal/config"
	"github.com/javanstorm/datadisk/internal/guest"
	"github.com/javanstorm/datadisk/pkg/hypervisor"
)

// TestConfig returns a Config rooted in t.TempDir(), ensuring automatic
// cleanup.
func TestConfig(t *testing.T, instance string) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig(t.TempDir())
	cfg.InstanceName = instance
	cfg.VMID = "kitchen-" + instance
	return cfg
}

// FakeRunner records VBoxManage invocations instead of executing them.
// A createhd call writes an empty file at --filename, like the real tool.
type FakeRunner struct {
	mu    sync.Mutex
	Calls [][]string

	// FailOn maps a VBoxManage subcommand to the error it returns.
	FailOn map[string]error

	// Output maps a subcommand to its stdout.
	Output map[string][]byte

	// PasswordFiles holds the contents of every --passwordfile seen,
	// read while the file still exists.
	PasswordFiles []string
}

// Run implements hypervisor.Runner.
func (r *FakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls = append(r.Calls, append([]string{name}, args...))
	if len(args) == 0 {
		return nil, errors.New("fake: no subcommand")
	}

	if path := flagValue(args, "--passwordfile"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		r.PasswordFiles = append(r.PasswordFiles, string(data))
	}

	sub := args[0]
	if err, ok := r.FailOn[sub]; ok {
		return nil, &hypervisor.CommandError{Path: name, Args: args, Output: "fake failure", Err: err}
	}
	if sub == "createhd" {
		if path := flagValue(args, "--filename"); path != "" {
			if err := os.WriteFile(path, nil, 0644); err != nil {
				return nil, err
			}
		}
	}
	return r.Output[sub], nil
}

// Subcommands returns the recorded subcommands in call order.
func (r *FakeRunner) Subcommands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var subs []string
	for _, c := range r.Calls {
		if len(c) > 1 {
			subs = append(subs, c[1])
		}
	}
	return subs
}

// CallsFor returns the argument lists of every call to sub.
func (r *FakeRunner) CallsFor(sub string) [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out [][]string
	for _, c := range r.Calls {
		if len(c) > 1 && c[1] == sub {
			out = append(out, c[1:])
		}
	}
	return out
}

func flagValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// MemoryScheduler keeps scheduled provisioners in memory.
type MemoryScheduler struct {
	Scheduled []guest.Provisioner
	Err       error
}

// Schedule implements guest.Scheduler.
func (s *MemoryScheduler) Schedule(_ context.Context, prov guest.Provisioner) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	s.Scheduled = append(s.Scheduled, prov)
	return "memory://" + prov.Name, nil
}

// CreateTestDisk creates an empty image file at path, including parents.
func CreateTestDisk(t *testing.T, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("<<< Oracle VM VirtualBox Disk Image >>>\n"), 0644); err != nil {
		t.Fatalf("failed to create test disk at %s: %v", path, err)
	}
}
