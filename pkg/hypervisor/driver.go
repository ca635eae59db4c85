// Package hypervisor provides the storage operations datadisk needs from
// VirtualBox, implemented on top of the VBoxManage command-line tool.
package hypervisor

import (
	"context"
)

// Driver is the main interface for hypervisor operations.
type Driver interface {
	// Info reports the tool in use. Version is queried lazily.
	Info(ctx context.Context) (Info, error)

	// EnsureMedium creates the medium if no file exists at cfg.Path.
	// The existence check and the create call run under an exclusive
	// lock on cfg.Path + ".lock", so concurrent callers create at most
	// one image. created reports whether this call created it. The lock
	// file is removed again once the medium exists; it only remains
	// after a failed create.
	EnsureMedium(ctx context.Context, cfg MediumConfig) (created bool, err error)

	// AttachStorage binds the medium to the controller slot. Re-attaching
	// the same medium to the same slot replaces the mapping.
	AttachStorage(ctx context.Context, a Attachment) error

	// GuestRun executes a program in the guest and returns its stdout.
	// The password is handed to VBoxManage in a temporary 0600 file.
	GuestRun(ctx context.Context, cmd GuestCommand) ([]byte, error)
}

// Info contains driver metadata.
type Info struct {
	Name    string // "virtualbox"
	Version string // VBoxManage --version, e.g. "7.0.14r161095"
	Path    string // resolved VBoxManage binary
}
