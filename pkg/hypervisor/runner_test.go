package hypervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVBoxManage writes a shell script standing in for VBoxManage.
func fakeVBoxManage(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "VBoxManage")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestExecRunnerKeepsStderrOutOfStdout(t *testing.T) {
	bin := fakeVBoxManage(t, `echo "WARNING: guest additions outdated" >&2
echo '[{"Number":0}]'
`)

	out, err := ExecRunner{}.Run(context.Background(), bin, "guestcontrol", "vm", "run")
	require.NoError(t, err)
	assert.Equal(t, "[{\"Number\":0}]\n", string(out))
}

func TestExecRunnerReportsStderrOnFailure(t *testing.T) {
	bin := fakeVBoxManage(t, `echo "partial"
echo "VBoxManage: error: Could not find a registered machine named 'vm'" >&2
exit 1
`)

	out, err := ExecRunner{}.Run(context.Background(), bin, "storageattach", "vm", "--password", "s3cret")
	require.Error(t, err)
	assert.Equal(t, "partial\n", string(out))

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "VBoxManage: error: Could not find a registered machine named 'vm'", cmdErr.Output)
	assert.Equal(t, []string{"storageattach", "vm", "--password", "********"}, cmdErr.Args)
}

func TestExecRunnerFallsBackToStdoutOnFailure(t *testing.T) {
	bin := fakeVBoxManage(t, "echo 'usage: VBoxManage ...'\nexit 2\n")

	_, err := ExecRunner{}.Run(context.Background(), bin, "bogus")
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "usage: VBoxManage ...", cmdErr.Output)
}

func TestGuestRunIgnoresStderrWarnings(t *testing.T) {
	bin := fakeVBoxManage(t, `echo "WARNING: guest additions outdated" >&2
echo '{"Disks":[{"Number":0}],"Volumes":[]}'
`)

	out, err := New(bin, ExecRunner{}).GuestRun(context.Background(), GuestCommand{VM: "vm", Exe: "powershell.exe"})
	require.NoError(t, err)
	assert.Equal(t, "{\"Disks\":[{\"Number\":0}],\"Volumes\":[]}\n", string(out))
}
