// Package guest builds the boot-time script that initializes the data disk
// inside a Windows guest, and hands it to the host orchestration.
package guest

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

//go:embed scripts/*.tmpl
var scripts embed.FS

var formatTemplate = template.Must(template.ParseFS(scripts, "scripts/format_disk.ps1.tmpl"))

var vagrantfileTemplate = template.Must(template.New("vagrantfile.rb.tmpl").
	Funcs(template.FuncMap{"ruby": rubyString}).
	ParseFS(scripts, "scripts/vagrantfile.rb.tmpl"))

// Messages printed by the script. Reconcile reports the same strings so
// host-side predictions read like guest output.
const (
	msgFormatted    = "%s: drive created successfully"
	msgAlreadyReady = "No RAW disk found or %s: drive already exists"
)

// Params parameterize the formatting script.
type Params struct {
	DriveLetter    string
	FileSystem     string
	Label          string
	PartitionStyle string
}

// DefaultParams returns D:, NTFS, "Data", GPT.
func DefaultParams() Params {
	return Params{
		DriveLetter:    "D",
		FileSystem:     "NTFS",
		Label:          "Data",
		PartitionStyle: "GPT",
	}
}

var (
	ErrInvalidDriveLetter    = errors.New("guest: drive letter must be a single letter from D to Z")
	ErrInvalidLabel          = errors.New("guest: label must not be empty or contain '\"', '`' or '$'")
	ErrInvalidPartitionStyle = errors.New("guest: partition style must be GPT or MBR")
	ErrInvalidFileSystem     = errors.New("guest: filesystem must be a single word")
)

// Validate rejects values that would break out of the script's quoting.
func (p *Params) Validate() error {
	letter, err := NormalizeDriveLetter(p.DriveLetter)
	if err != nil {
		return err
	}
	p.DriveLetter = letter
	if p.Label == "" || strings.ContainsAny(p.Label, "\"`$\r\n") {
		return ErrInvalidLabel
	}
	p.PartitionStyle = strings.ToUpper(p.PartitionStyle)
	if p.PartitionStyle != "GPT" && p.PartitionStyle != "MBR" {
		return ErrInvalidPartitionStyle
	}
	if p.FileSystem == "" || strings.ContainsAny(p.FileSystem, " \"`$;|") {
		return ErrInvalidFileSystem
	}
	return nil
}

// NormalizeDriveLetter upper-cases letter and drops a trailing colon.
// A to C are refused: floppy letters and the system drive.
func NormalizeDriveLetter(letter string) (string, error) {
	letter = strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(letter), ":"))
	if len(letter) != 1 || letter[0] < 'D' || letter[0] > 'Z' {
		return "", ErrInvalidDriveLetter
	}
	return letter, nil
}

// Render returns the PowerShell script for p.
func Render(p Params) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := formatTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render format script: %w", err)
	}
	return buf.String(), nil
}
