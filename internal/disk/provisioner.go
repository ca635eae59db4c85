// Package disk attaches a secondary data disk to a VirtualBox VM and
// schedules its formatting inside the guest.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/javanstorm/datadisk/internal/config"
	"github.com/javanstorm/datadisk/internal/guest"
	"github.com/javanstorm/datadisk/internal/logger"
	"github.com/javanstorm/datadisk/internal/timing"
	"github.com/javanstorm/datadisk/pkg/hypervisor"
)

// Provisioner runs the data disk provisioning steps for one instance.
type Provisioner struct {
	cfg       *config.Config
	driver    hypervisor.Driver
	scheduler guest.Scheduler
	timer     *timing.Timer
	out       io.Writer
	now       func() time.Time
	getwd     func() (string, error)
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithScheduler overrides where the guest script is handed off. By default
// it is written to the instance's provisioner directory.
func WithScheduler(s guest.Scheduler) Option {
	return func(p *Provisioner) {
		p.scheduler = s
	}
}

// WithTimer records step durations in t.
func WithTimer(t *timing.Timer) Option {
	return func(p *Provisioner) {
		p.timer = t
	}
}

// WithClock sets the time source for run records.
func WithClock(now func() time.Time) Option {
	return func(p *Provisioner) {
		p.now = now
	}
}

// NewProvisioner creates a provisioner. Progress lines go to out.
func NewProvisioner(cfg *config.Config, driver hypervisor.Driver, out io.Writer, opts ...Option) *Provisioner {
	if out == nil {
		out = io.Discard
	}
	p := &Provisioner{
		cfg:    cfg,
		driver: driver,
		out:    out,
		now:    time.Now,
		getwd:  os.Getwd,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result summarizes a successful run.
type Result struct {
	Context    config.ProvisioningContext
	Created    bool
	Attachment hypervisor.Attachment
	Manifest   string
}

// ResolveContext derives the run's paths and prints them before anything
// is changed, so a failed run can be diagnosed from its output.
func (p *Provisioner) ResolveContext(ctx context.Context) config.ProvisioningContext {
	pc := config.Resolve(p.cfg)
	wd, err := p.getwd()
	if err != nil {
		wd = fmt.Sprintf("(unknown: %v)", err)
	}

	fmt.Fprintf(p.out, "==> datadisk: disk_file = %s\n", pc.DiskFile)
	fmt.Fprintf(p.out, "==> datadisk: project_root = %s\n", pc.ProjectRoot)
	fmt.Fprintf(p.out, "==> datadisk: working_dir = %s\n", wd)

	logger.FromContext(ctx).Debug("resolved provisioning context",
		"instance", pc.InstanceName,
		"kitchen_dir", pc.KitchenDir,
		"disk_file", pc.DiskFile)
	return pc
}

// EnsureDirectory creates dir and its parents if missing.
func (p *Provisioner) EnsureDirectory(ctx context.Context, dir string) error {
	if err := config.EnsureDirectory(dir); err != nil {
		return stepErr(StepDirectory, err)
	}
	logger.FromContext(ctx).Debug("directory ready", "dir", dir)
	return nil
}

// EnsureDisk creates the image at path with sizeMB if no file exists
// there. It reports whether this call created the image.
func (p *Provisioner) EnsureDisk(ctx context.Context, path string, sizeMB int64) (bool, error) {
	log := logger.FromContext(ctx)

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(p.out, "==> Disk already exists: %s\n", path)
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, stepErr(StepDisk, err)
	}

	fmt.Fprintf(p.out, "==> Creating new disk: %s\n", path)
	created, err := p.driver.EnsureMedium(ctx, hypervisor.MediumConfig{Path: path, SizeMB: sizeMB})
	if err != nil {
		return false, stepErr(StepDisk, err)
	}
	if !created {
		// Another run created it between the stat and the lock.
		fmt.Fprintf(p.out, "==> Disk already exists: %s\n", path)
		return false, nil
	}

	log.Info("created disk", "path", path, "size_mb", sizeMB)
	return true, nil
}

// AttachDisk binds the image to the fixed SATA slot. It is issued on every
// run; re-attaching the same medium is harmless.
func (p *Provisioner) AttachDisk(ctx context.Context, a hypervisor.Attachment) error {
	if err := p.driver.AttachStorage(ctx, a); err != nil {
		return stepErr(StepAttach, err)
	}
	logger.FromContext(ctx).Info("attached disk",
		"vm", a.VM,
		"controller", a.Controller,
		"port", a.Port,
		"device", a.Device,
		"medium", a.Medium)
	return nil
}

// FormatOnBoot hands the always-run formatting script to the scheduler
// and returns where it was placed.
func (p *Provisioner) FormatOnBoot(ctx context.Context, pc config.ProvisioningContext) (string, error) {
	prov, err := guest.NewFormatProvisioner(p.params())
	if err != nil {
		return "", stepErr(StepFormat, err)
	}

	scheduler := p.scheduler
	if scheduler == nil {
		scheduler = guest.FileScheduler{Dir: pc.ProvisionerDir(), Instance: pc.InstanceName}
	}

	location, err := scheduler.Schedule(ctx, prov)
	if err != nil {
		return "", stepErr(StepFormat, err)
	}
	logger.FromContext(ctx).Info("scheduled guest format", "provisioner", prov.Name, "run", prov.Run, "location", location)
	return location, nil
}

// Run executes all steps in order and stops at the first failure.
func (p *Provisioner) Run(ctx context.Context) (*Result, error) {
	sizeMB, err := p.cfg.DiskSizeMB()
	if err != nil {
		return nil, err
	}

	var pc config.ProvisioningContext
	_ = p.track("resolve", func() error {
		pc = p.ResolveContext(ctx)
		return nil
	})

	// Fail before creating anything the attach step could never use.
	attachment := hypervisor.NewAttachment(p.cfg.VMID, pc.DiskFile)
	if err := attachment.Validate(); err != nil {
		return nil, stepErr(StepAttach, err)
	}
	params := p.params()
	if err := params.Validate(); err != nil {
		return nil, stepErr(StepFormat, err)
	}

	res := &Result{Context: pc, Attachment: attachment}

	if err := p.track(string(StepDirectory), func() error {
		return p.EnsureDirectory(ctx, pc.KitchenDir)
	}); err != nil {
		return nil, err
	}

	if err := p.track(string(StepDisk), func() error {
		created, err := p.EnsureDisk(ctx, pc.DiskFile, sizeMB)
		res.Created = created
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.track(string(StepAttach), func() error {
		return p.AttachDisk(ctx, attachment)
	}); err != nil {
		return nil, err
	}

	if err := p.track(string(StepFormat), func() error {
		manifest, err := p.FormatOnBoot(ctx, pc)
		res.Manifest = manifest
		return err
	}); err != nil {
		return nil, err
	}

	p.saveRecord(ctx, pc, res, sizeMB)
	return res, nil
}

// saveRecord updates the run record. Failures are logged only; the disk
// is already attached at this point.
func (p *Provisioner) saveRecord(ctx context.Context, pc config.ProvisioningContext, res *Result, sizeMB int64) {
	log := logger.FromContext(ctx)
	records := NewRecordFile(pc.RecordFile())

	rec, err := records.Load()
	if err != nil {
		log.Warn("discarding unreadable run record", "path", records.Path(), "error", err)
		rec = &Record{}
	}

	now := p.now()
	if res.Created {
		rec.CreatedAt = &now
		rec.SizeMB = sizeMB
	}
	rec.DiskFile = pc.DiskFile
	rec.VM = res.Attachment.VM
	rec.LastAttach = now
	rec.AttachCount++
	rec.Manifest = res.Manifest

	if err := records.Save(rec); err != nil {
		log.Warn("failed to save run record", "path", records.Path(), "error", err)
	}
}

func (p *Provisioner) params() guest.Params {
	return guest.Params{
		DriveLetter:    p.cfg.DriveLetter,
		FileSystem:     p.cfg.FileSystem,
		Label:          p.cfg.Label,
		PartitionStyle: p.cfg.PartitionStyle,
	}
}

func (p *Provisioner) track(name string, fn func() error) error {
	if p.timer == nil {
		return fn()
	}
	return p.timer.Track(name, fn)
}
