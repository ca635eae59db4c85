package guest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Guest provisioning contract: a shell provisioner that runs on every boot,
// not only the first, so a skipped initial provision still formats the disk.
const (
	ProvisionerName = "disk_setup"
	TypeShell       = "shell"
	RunAlways       = "always"
)

// Provisioner is the definition handed to the host orchestration's
// shell-execution provisioning mechanism.
type Provisioner struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Run    string `yaml:"run"`
	Path   string `yaml:"path,omitempty"`
	Inline string `yaml:"inline,omitempty"`
}

// NewFormatProvisioner returns the always-run provisioner carrying the
// rendered formatting script inline.
func NewFormatProvisioner(p Params) (Provisioner, error) {
	script, err := Render(p)
	if err != nil {
		return Provisioner{}, err
	}
	return Provisioner{
		Name:   ProvisionerName,
		Type:   TypeShell,
		Run:    RunAlways,
		Inline: script,
	}, nil
}

// MarshalManifest encodes a provisioner definition as YAML.
func MarshalManifest(prov Provisioner) ([]byte, error) {
	data, err := yaml.Marshal(&prov)
	if err != nil {
		return nil, fmt.Errorf("marshal provisioner: %w", err)
	}
	return data, nil
}

// LoadManifest reads a manifest written by FileScheduler.
func LoadManifest(path string) (*Provisioner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provisioner: %w", err)
	}
	var prov Provisioner
	if err := yaml.Unmarshal(data, &prov); err != nil {
		return nil, fmt.Errorf("parse provisioner: %w", err)
	}
	return &prov, nil
}

// ErrMissingScriptPath is returned when a Vagrantfile fragment is rendered
// for a provisioner that does not reference a script file.
var ErrMissingScriptPath = errors.New("guest: provisioner has no script path")

// RenderVagrantfile returns a Vagrantfile fragment registering prov as a
// shell provisioner that runs the script at prov.Path.
func RenderVagrantfile(prov Provisioner) (string, error) {
	if prov.Path == "" {
		return "", ErrMissingScriptPath
	}
	var buf bytes.Buffer
	if err := vagrantfileTemplate.Execute(&buf, prov); err != nil {
		return "", fmt.Errorf("render vagrantfile: %w", err)
	}
	return buf.String(), nil
}

// rubyString quotes s as a single-quoted Ruby literal.
func rubyString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// Scheduler hands a provisioner to whatever runs it in the guest.
// It returns where the definition was placed.
type Scheduler interface {
	Schedule(ctx context.Context, prov Provisioner) (string, error)
}

// FileScheduler writes the script, a Vagrantfile fragment that runs it and
// a YAML manifest describing both into Dir. The fragment is what Vagrant
// loads, through the kitchen driver's vagrantfiles setting.
type FileScheduler struct {
	Dir      string
	Instance string
}

// ManifestPath returns the manifest location for a provisioner name.
func (s FileScheduler) ManifestPath(name string) string {
	return filepath.Join(s.Dir, s.baseName(name)+".yaml")
}

// VagrantfilePath returns the Vagrantfile fragment location for a
// provisioner name.
func (s FileScheduler) VagrantfilePath(name string) string {
	return filepath.Join(s.Dir, s.baseName(name)+".rb")
}

// ScriptPath returns the script location for a provisioner name.
func (s FileScheduler) ScriptPath(name string) string {
	return filepath.Join(s.Dir, s.baseName(name)+".ps1")
}

func (s FileScheduler) baseName(name string) string {
	return name + "_" + s.Instance
}

// Schedule writes <Dir>/<name>_<instance>.ps1, .rb and .yaml. Existing
// files are replaced so a changed configuration takes effect on the next
// boot.
func (s FileScheduler) Schedule(ctx context.Context, prov Provisioner) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create provisioner dir: %w", err)
	}

	scriptPath := s.ScriptPath(prov.Name)
	if err := writeFileAtomic(scriptPath, []byte(prov.Inline)); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}

	manifest := prov
	manifest.Inline = ""
	manifest.Path = scriptPath

	fragment, err := RenderVagrantfile(manifest)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(s.VagrantfilePath(prov.Name), []byte(fragment)); err != nil {
		return "", fmt.Errorf("write vagrantfile: %w", err)
	}

	data, err := MarshalManifest(manifest)
	if err != nil {
		return "", err
	}

	manifestPath := s.ManifestPath(prov.Name)
	if err := writeFileAtomic(manifestPath, data); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return manifestPath, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
