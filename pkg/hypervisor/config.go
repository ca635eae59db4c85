package hypervisor

// Fixed slot for the data disk on the VM's SATA controller.
const (
	DefaultController = "SATA Controller"
	DefaultPort       = 1
	DefaultDevice     = 0
	DefaultMediumType = "hdd"
)

// DefaultMediumSizeMB is the size of a newly created data disk (50GB).
const DefaultMediumSizeMB = 50 * 1024

// MediumConfig describes a virtual disk image to create.
type MediumConfig struct {
	// Path is the host path of the image. The format is inferred by
	// VBoxManage from the extension (.vdi, .vmdk, .vhd).
	Path string

	// SizeMB is the logical size of the image in megabytes.
	SizeMB int64
}

// Validate performs basic validation of the medium configuration.
func (c *MediumConfig) Validate() error {
	if c.Path == "" {
		return ErrMissingMedium
	}
	if c.SizeMB < 1 {
		return ErrInvalidSize
	}
	return nil
}

// Attachment binds a medium to a storage controller slot of a VM.
type Attachment struct {
	// VM is the VirtualBox machine UUID or name.
	VM string

	// Controller is the storage controller name as shown by showvminfo.
	Controller string

	// Port and Device select the slot on the controller.
	Port   int
	Device int

	// Type is the medium type passed to --type ("hdd", "dvddrive").
	Type string

	// Medium is the host path of the image to attach.
	Medium string
}

// NewAttachment returns the data disk attachment for medium on vm, using
// the fixed controller slot.
func NewAttachment(vm, medium string) Attachment {
	return Attachment{
		VM:         vm,
		Controller: DefaultController,
		Port:       DefaultPort,
		Device:     DefaultDevice,
		Type:       DefaultMediumType,
		Medium:     medium,
	}
}

// Validate performs basic validation of the attachment.
func (a *Attachment) Validate() error {
	if a.VM == "" {
		return ErrMissingVM
	}
	if a.Medium == "" {
		return ErrMissingMedium
	}
	if a.Controller == "" {
		return ErrMissingController
	}
	if a.Port < 0 || a.Device < 0 {
		return ErrInvalidSlot
	}
	if a.Type == "" {
		a.Type = DefaultMediumType
	}
	return nil
}

// GuestCommand is a program executed inside a running guest through
// the guest additions.
type GuestCommand struct {
	VM       string
	Username string
	Password string

	// Exe is the absolute guest path of the program.
	Exe string

	// Args are passed after argv[0].
	Args []string
}
