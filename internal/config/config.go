package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// InstanceEnv is the variable Test Kitchen exports with the instance name.
const InstanceEnv = "KITCHEN_INSTANCE_NAME"

// DefaultInstanceName is used when no instance name is configured.
const DefaultInstanceName = "default"

// Config holds all datadisk configuration.
type Config struct {
	// ProjectRoot is the directory holding the kitchen definition.
	ProjectRoot string `mapstructure:"project_root" yaml:"project_root"`

	// KitchenDir holds per-instance state. Defaults to <ProjectRoot>/.kitchen.
	KitchenDir string `mapstructure:"kitchen_dir" yaml:"kitchen_dir"`

	// InstanceName distinguishes VMs sharing the same kitchen definition.
	InstanceName string `mapstructure:"instance_name" yaml:"instance_name"`

	// VMID is the VirtualBox machine UUID or name to attach the disk to.
	VMID string `mapstructure:"vm_id" yaml:"vm_id"`

	// DiskSize is the size of a newly created disk, e.g. "50GB".
	DiskSize string `mapstructure:"disk_size" yaml:"disk_size"`

	// VBoxManage overrides the VBoxManage binary lookup.
	VBoxManage string `mapstructure:"vboxmanage" yaml:"vboxmanage"`

	// DriveLetter, FileSystem, Label and PartitionStyle parameterize the
	// guest formatting script.
	DriveLetter    string `mapstructure:"drive_letter" yaml:"drive_letter"`
	FileSystem     string `mapstructure:"filesystem" yaml:"filesystem"`
	Label          string `mapstructure:"label" yaml:"label"`
	PartitionStyle string `mapstructure:"partition_style" yaml:"partition_style"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfig returns a Config with defaults for the given project root.
func DefaultConfig(projectRoot string) *Config {
	return &Config{
		ProjectRoot:    projectRoot,
		KitchenDir:     filepath.Join(projectRoot, ".kitchen"),
		InstanceName:   DefaultInstanceName,
		DiskSize:       "50GB",
		DriveLetter:    "D",
		FileSystem:     "NTFS",
		Label:          "Data",
		PartitionStyle: "GPT",
		LogLevel:       "info",
	}
}

// keys lists every configuration key. Flags named after a key with
// underscores replaced by dashes are bound automatically.
var keys = []string{
	"project_root",
	"kitchen_dir",
	"instance_name",
	"vm_id",
	"disk_size",
	"vboxmanage",
	"drive_letter",
	"filesystem",
	"label",
	"partition_style",
	"log_level",
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// ProjectRoot overrides DATADISK_PROJECT_ROOT and the working directory.
	ProjectRoot string

	// ConfigFile is an explicit config file path.
	ConfigFile string

	// Flags are bound on top of file and environment values.
	Flags *pflag.FlagSet
}

// Load reads configuration from flags, environment, config file, .env and
// defaults, in that priority order.
func Load(opts LoadOptions) (*Config, error) {
	root, err := resolveProjectRoot(opts.ProjectRoot)
	if err != nil {
		return nil, err
	}

	// .env is optional and never overrides variables already set.
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()

	defaults := DefaultConfig(root)
	v.SetDefault("project_root", defaults.ProjectRoot)
	v.SetDefault("kitchen_dir", "")
	v.SetDefault("instance_name", defaults.InstanceName)
	v.SetDefault("vm_id", defaults.VMID)
	v.SetDefault("disk_size", defaults.DiskSize)
	v.SetDefault("vboxmanage", defaults.VBoxManage)
	v.SetDefault("drive_letter", defaults.DriveLetter)
	v.SetDefault("filesystem", defaults.FileSystem)
	v.SetDefault("label", defaults.Label)
	v.SetDefault("partition_style", defaults.PartitionStyle)
	v.SetDefault("log_level", defaults.LogLevel)

	// Config file settings
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("datadisk")
		v.SetConfigType("yaml")
		v.AddConfigPath(root)
		v.AddConfigPath(filepath.Join(root, ".kitchen"))
	}

	// Environment variable support: DATADISK_VM_ID, DATADISK_DISK_SIZE, etc.
	v.SetEnvPrefix("DATADISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("instance_name", InstanceEnv, "DATADISK_INSTANCE_NAME"); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", InstanceEnv, err)
	}

	if opts.Flags != nil {
		for _, key := range keys {
			if f := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	// Read config file (optional - not an error if missing)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.ConfigFile != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// The root may have come from a file or flag; keep it and the
	// kitchen dir absolute and consistent.
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = root
	}
	cfg.ProjectRoot = absPath(cfg.ProjectRoot)
	if cfg.KitchenDir == "" {
		cfg.KitchenDir = filepath.Join(cfg.ProjectRoot, ".kitchen")
	}
	cfg.KitchenDir = absPath(cfg.KitchenDir)
	if cfg.InstanceName == "" {
		cfg.InstanceName = DefaultInstanceName
	}

	return cfg, nil
}

// DiskSizeMB parses DiskSize into megabytes.
func (c *Config) DiskSizeMB() (int64, error) {
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(c.DiskSize)); err != nil {
		return 0, fmt.Errorf("invalid disk size %q: %w", c.DiskSize, err)
	}
	return int64(size.MBytes()), nil
}

func resolveProjectRoot(explicit string) (string, error) {
	if explicit != "" {
		return absPath(explicit), nil
	}
	if env := os.Getenv("DATADISK_PROJECT_ROOT"); env != "" {
		return absPath(env), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	return wd, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
