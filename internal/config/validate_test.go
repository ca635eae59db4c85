package config

import (
	"strings"
	"testing"

	"github.com/javanstorm/datadisk/internal/guest"
)

func validConfig() *Config {
	cfg := DefaultConfig("/work/proj")
	cfg.VMID = "kitchen-vm"
	return cfg
}

func TestValidateConfigValid(t *testing.T) {
	if errs := ValidateConfig(validConfig()); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
		fatal  bool
	}{
		{"instance with slash", func(c *Config) { c.InstanceName = "../escape" }, "InstanceName", true},
		{"unparseable size", func(c *Config) { c.DiskSize = "lots" }, "DiskSize", true},
		{"system drive letter", func(c *Config) { c.DriveLetter = "C" }, "DriveLetter", true},
		{"system drive with colon", func(c *Config) { c.DriveLetter = "c:" }, "DriveLetter", true},
		{"two letter drive", func(c *Config) { c.DriveLetter = "DE" }, "DriveLetter", true},
		{"unknown filesystem", func(c *Config) { c.FileSystem = "ext4" }, "FileSystem", true},
		{"unknown partition style", func(c *Config) { c.PartitionStyle = "RAW" }, "PartitionStyle", true},
		{"label with quote", func(c *Config) { c.Label = `Da"ta` }, "Label", true},
		{"long fat32 label", func(c *Config) { c.FileSystem = "FAT32"; c.Label = "VeryLongLabelName" }, "Label", false},
		{"missing vm", func(c *Config) { c.VMID = "" }, "VMID", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			errs := ValidateConfig(cfg)
			if len(errs) != 1 {
				t.Fatalf("expected 1 validation error, got %d: %v", len(errs), errs)
			}
			if errs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.field)
			}
			if errs[0].Fatal != tt.fatal {
				t.Errorf("Fatal = %v, want %v", errs[0].Fatal, tt.fatal)
			}
			if HasFatal(errs) != tt.fatal {
				t.Errorf("HasFatal = %v, want %v", HasFatal(errs), tt.fatal)
			}
		})
	}
}

func TestValidateConfigAcceptsDriveLetterForms(t *testing.T) {
	for _, letter := range []string{"D", "D:", "e", "e:"} {
		t.Run(letter, func(t *testing.T) {
			cfg := validConfig()
			cfg.DriveLetter = letter
			if errs := ValidateConfig(cfg); len(errs) != 0 {
				t.Fatalf("expected %q to be accepted, got %v", letter, errs)
			}

			// The guest script must accept exactly what validation accepts.
			if _, err := guest.NormalizeDriveLetter(letter); err != nil {
				t.Fatalf("guest rejects %q: %v", letter, err)
			}
		})
	}
}

func TestFormatValidationErrors(t *testing.T) {
	if got := FormatValidationErrors(nil); got != "" {
		t.Errorf("expected empty summary, got %q", got)
	}

	got := FormatValidationErrors([]ValidationError{
		{Field: "DriveLetter", Message: "bad", Fatal: true},
		{Field: "VMID", Message: "unset", Fatal: false},
	})
	if !strings.Contains(got, "Error [DriveLetter]: bad") {
		t.Errorf("summary missing fatal entry: %q", got)
	}
	if !strings.Contains(got, "Warning [VMID]: unset") {
		t.Errorf("summary missing warning entry: %q", got)
	}
}
