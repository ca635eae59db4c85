package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets variables that would leak into Load from the host.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{InstanceEnv, "DATADISK_INSTANCE_NAME", "DATADISK_VM_ID", "DATADISK_PROJECT_ROOT", "DATADISK_KITCHEN_DIR", "DATADISK_DISK_SIZE"} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/work/proj")

	if cfg == nil {
		t.Fatal("DefaultConfig should not return nil")
	}
	if cfg.InstanceName != "default" {
		t.Errorf("InstanceName should be 'default', got %q", cfg.InstanceName)
	}
	if cfg.KitchenDir != filepath.Join("/work/proj", ".kitchen") {
		t.Errorf("KitchenDir should be under the project root, got %q", cfg.KitchenDir)
	}
	if cfg.DiskSize != "50GB" {
		t.Errorf("DiskSize should be '50GB', got %q", cfg.DiskSize)
	}
	if cfg.DriveLetter != "D" || cfg.FileSystem != "NTFS" || cfg.Label != "Data" || cfg.PartitionStyle != "GPT" {
		t.Errorf("unexpected guest defaults: %+v", cfg)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	cfg, err := Load(LoadOptions{ProjectRoot: root})
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, ".kitchen"), cfg.KitchenDir)
	assert.Equal(t, "default", cfg.InstanceName, "empty instance variable falls back to default")
	assert.Equal(t, "50GB", cfg.DiskSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadInstanceNameFromKitchenEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(InstanceEnv, "ci-1")

	cfg, err := Load(LoadOptions{ProjectRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "ci-1", cfg.InstanceName)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	content := "vm_id: kitchen-win2022\ndisk_size: 20GB\nlabel: Scratch\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "datadisk.yaml"), []byte(content), 0644))

	cfg, err := Load(LoadOptions{ProjectRoot: root})
	require.NoError(t, err)

	assert.Equal(t, "kitchen-win2022", cfg.VMID)
	assert.Equal(t, "20GB", cfg.DiskSize)
	assert.Equal(t, "Scratch", cfg.Label)
}

func TestLoadExplicitConfigFileMissing(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	_, err := Load(LoadOptions{ProjectRoot: root, ConfigFile: filepath.Join(root, "nope.yaml")})
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("DATADISK_LABEL=FromDotEnv\n"), 0644))
	os.Unsetenv("DATADISK_LABEL")
	t.Cleanup(func() { os.Unsetenv("DATADISK_LABEL") })

	cfg, err := Load(LoadOptions{ProjectRoot: root})
	require.NoError(t, err)
	assert.Equal(t, "FromDotEnv", cfg.Label)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATADISK_VM_ID", "env-vm")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("vm-id", "", "")
	flags.String("instance-name", "", "")
	require.NoError(t, flags.Parse([]string{"--vm-id", "flag-vm"}))

	cfg, err := Load(LoadOptions{ProjectRoot: t.TempDir(), Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, "flag-vm", cfg.VMID)
	assert.Equal(t, "default", cfg.InstanceName, "unset flag must not mask the default")
}

func TestLoadKitchenDirOverride(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	custom := filepath.Join(root, "state")
	t.Setenv("DATADISK_KITCHEN_DIR", custom)

	cfg, err := Load(LoadOptions{ProjectRoot: root})
	require.NoError(t, err)
	assert.Equal(t, custom, cfg.KitchenDir)
}

func TestDiskSizeMB(t *testing.T) {
	tests := []struct {
		size    string
		want    int64
		wantErr bool
	}{
		{"50GB", 51200, false},
		{"51200MB", 51200, false},
		{"1TB", 1024 * 1024, false},
		{"bogus", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			cfg := &Config{DiskSize: tt.size}
			got, err := cfg.DiskSizeMB()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
