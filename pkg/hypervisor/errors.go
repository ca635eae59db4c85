package hypervisor

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors
var (
	ErrMissingVM         = errors.New("hypervisor: VM identifier is required")
	ErrMissingMedium     = errors.New("hypervisor: medium path is required")
	ErrMissingController = errors.New("hypervisor: storage controller name is required")
	ErrInvalidSlot       = errors.New("hypervisor: port and device must not be negative")
	ErrInvalidSize       = errors.New("hypervisor: medium size must be at least 1MB")
)

// Runtime errors
var (
	ErrLockTimeout = errors.New("hypervisor: timed out waiting for medium lock")
)

// Platform errors
var (
	ErrVBoxManageNotFound = errors.New("hypervisor: VBoxManage not found (install VirtualBox from https://www.virtualbox.org/wiki/Downloads)")
)

// CommandError reports a failed VBoxManage invocation together with
// whatever the tool printed before exiting.
type CommandError struct {
	Path   string
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Path, strings.Join(e.Args, " "), e.Err)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
