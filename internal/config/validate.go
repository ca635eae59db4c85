package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/javanstorm/datadisk/internal/guest"
)

// ValidationError represents a configuration issue.
type ValidationError struct {
	Field   string
	Message string
	Fatal   bool // true = can't proceed, false = will be ignored
}

var instanceNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

var supportedFileSystems = []string{"NTFS", "ReFS", "exFAT", "FAT32"}

// ValidateConfig checks the configuration before any provisioning step.
// Returns a list of validation errors/warnings.
func ValidateConfig(cfg *Config) []ValidationError {
	var errors []ValidationError

	if cfg.InstanceName != "" && !instanceNamePattern.MatchString(cfg.InstanceName) {
		errors = append(errors, ValidationError{
			Field:   "InstanceName",
			Message: fmt.Sprintf("%q may only contain letters, digits, '.', '_' and '-'", cfg.InstanceName),
			Fatal:   true,
		})
	}

	if size, err := cfg.DiskSizeMB(); err != nil {
		errors = append(errors, ValidationError{Field: "DiskSize", Message: err.Error(), Fatal: true})
	} else if size < 1 {
		errors = append(errors, ValidationError{
			Field:   "DiskSize",
			Message: fmt.Sprintf("%q is smaller than 1MB", cfg.DiskSize),
			Fatal:   true,
		})
	}

	if _, err := guest.NormalizeDriveLetter(cfg.DriveLetter); err != nil {
		errors = append(errors, ValidationError{
			Field:   "DriveLetter",
			Message: fmt.Sprintf("%q must be a single letter from D to Z", cfg.DriveLetter),
			Fatal:   true,
		})
	}

	if !containsFold(supportedFileSystems, cfg.FileSystem) {
		errors = append(errors, ValidationError{
			Field:   "FileSystem",
			Message: fmt.Sprintf("%q is not one of %s", cfg.FileSystem, strings.Join(supportedFileSystems, ", ")),
			Fatal:   true,
		})
	}

	switch strings.ToUpper(cfg.PartitionStyle) {
	case "GPT", "MBR":
	default:
		errors = append(errors, ValidationError{
			Field:   "PartitionStyle",
			Message: fmt.Sprintf("%q must be GPT or MBR", cfg.PartitionStyle),
			Fatal:   true,
		})
	}

	if strings.ContainsAny(cfg.Label, "\"`$") {
		errors = append(errors, ValidationError{
			Field:   "Label",
			Message: "volume label must not contain '\"', '`' or '$'",
			Fatal:   true,
		})
	} else if strings.EqualFold(cfg.FileSystem, "FAT32") && len(cfg.Label) > 11 {
		errors = append(errors, ValidationError{
			Field:   "Label",
			Message: "FAT32 labels longer than 11 characters are truncated by Windows",
			Fatal:   false,
		})
	}

	if cfg.VMID == "" {
		errors = append(errors, ValidationError{
			Field:   "VMID",
			Message: "no VM set (--vm-id or DATADISK_VM_ID); provision will fail at attach",
			Fatal:   false,
		})
	}

	return errors
}

// HasFatal reports whether any error prevents provisioning.
func HasFatal(errors []ValidationError) bool {
	for _, e := range errors {
		if e.Fatal {
			return true
		}
	}
	return false
}

// FormatValidationErrors returns human-readable error summary.
func FormatValidationErrors(errors []ValidationError) string {
	if len(errors) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Configuration warnings:\n")
	for _, e := range errors {
		prefix := "Warning"
		if e.Fatal {
			prefix = "Error"
		}
		fmt.Fprintf(&b, "  %s [%s]: %s\n", prefix, e.Field, e.Message)
	}
	return b.String()
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
