// Package config provides configuration management for datadisk.
package config

import (
	"os"
	"path/filepath"
)

// ProvisioningContext holds the paths derived for one provisioning run.
// It is computed from Config and never persisted.
type ProvisioningContext struct {
	// ProjectRoot is the directory holding the kitchen definition.
	ProjectRoot string

	// KitchenDir holds disk images and run records.
	KitchenDir string

	// InstanceName identifies the kitchen instance.
	InstanceName string

	// DiskFile is <KitchenDir>/data_disk_<InstanceName>.vdi.
	DiskFile string
}

// Resolve derives the provisioning context from cfg. The result depends
// only on ProjectRoot, KitchenDir and InstanceName.
func Resolve(cfg *Config) ProvisioningContext {
	name := cfg.InstanceName
	if name == "" {
		name = DefaultInstanceName
	}
	kitchenDir := cfg.KitchenDir
	if kitchenDir == "" {
		kitchenDir = filepath.Join(cfg.ProjectRoot, ".kitchen")
	}

	return ProvisioningContext{
		ProjectRoot:  cfg.ProjectRoot,
		KitchenDir:   kitchenDir,
		InstanceName: name,
		DiskFile:     filepath.Join(kitchenDir, DiskFileName(name)),
	}
}

// DiskFileName returns the image file name for an instance.
func DiskFileName(instance string) string {
	return "data_disk_" + instance + ".vdi"
}

// RecordFile is where the result of the last successful run is kept.
func (c ProvisioningContext) RecordFile() string {
	return filepath.Join(c.KitchenDir, "data_disk_"+c.InstanceName+".json")
}

// ProvisionerDir holds the guest provisioner definitions handed to the
// host orchestration.
func (c ProvisioningContext) ProvisionerDir() string {
	return filepath.Join(c.KitchenDir, "provisioners")
}

// EnsureDirectory creates dir and any missing parents. It is a no-op when
// dir already exists.
func EnsureDirectory(dir string) error {
	return os.MkdirAll(dir, 0755)
}
