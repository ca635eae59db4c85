package hypervisor

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// installDirEnv lists the variables the VirtualBox installer sets on Windows.
var installDirEnv = []string{"VBOX_MSI_INSTALL_PATH", "VBOX_INSTALL_PATH"}

// LocateVBoxManage returns the path to the VBoxManage binary. An explicit
// override wins, then PATH, then the VirtualBox install directory.
func LocateVBoxManage(override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			if path, lookErr := exec.LookPath(override); lookErr == nil {
				return path, nil
			}
			return "", ErrVBoxManageNotFound
		}
		return override, nil
	}

	for _, name := range binaryNames() {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	for _, env := range installDirEnv {
		dir := os.Getenv(env)
		if dir == "" {
			continue
		}
		for _, name := range binaryNames() {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", ErrVBoxManageNotFound
}

func binaryNames() []string {
	if runtime.GOOS == "windows" {
		return []string{"VBoxManage.exe"}
	}
	// Some Linux packages only ship the lowercase symlink.
	return []string{"VBoxManage", "vboxmanage"}
}

// NewDriver locates VBoxManage and returns a Driver that executes it.
func NewDriver(override string) (Driver, error) {
	bin, err := LocateVBoxManage(override)
	if err != nil {
		return nil, err
	}
	return New(bin, ExecRunner{}), nil
}

// installHints maps a host OS to how VirtualBox is usually installed there.
var installHints = map[string]string{
	"windows": "install VirtualBox from https://www.virtualbox.org/wiki/Downloads or run: winget install Oracle.VirtualBox",
	"darwin":  "brew install --cask virtualbox",
	"linux":   "install the virtualbox package from your distribution or https://www.virtualbox.org/wiki/Linux_Downloads",
}

// InstallHint returns a one-line hint for installing VBoxManage on goos.
func InstallHint(goos string) string {
	if hint, ok := installHints[goos]; ok {
		return hint
	}
	return "install VirtualBox from https://www.virtualbox.org/wiki/Downloads"
}
