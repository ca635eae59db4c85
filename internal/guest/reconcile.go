package guest

import (
	"fmt"
	"sort"
)

// State is the data disk's lifecycle inside the guest. RAW moves to
// INITIALIZED once; INITIALIZED is terminal.
type State int

const (
	StateRaw State = iota
	StateInitialized
)

func (s State) String() string {
	switch s {
	case StateRaw:
		return "raw"
	case StateInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// Outcome is what one execution of the boot script does.
type Outcome int

const (
	OutcomeFormatted Outcome = iota
	OutcomeAlreadyFormatted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFormatted:
		return "formatted"
	case OutcomeAlreadyFormatted:
		return "already formatted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes one boot's effect.
type Result struct {
	Outcome Outcome

	// Disk is the disk the script selected, nil when none was RAW.
	Disk *Disk

	// Message is the line the script prints.
	Message string
}

// StateOf reports RAW while any disk is still uninitialized.
func StateOf(disks []Disk) State {
	if _, ok := firstRaw(disks); ok {
		return StateRaw
	}
	return StateInitialized
}

// Reconcile applies one run of the boot script to inv and returns the
// resulting inventory. Only the lowest-numbered RAW disk is touched, so a
// run formats at most one disk; inv is not modified.
//
// When the drive letter is already taken the script fails at
// New-Partition, after Initialize-Disk has succeeded: the disk leaves
// the RAW state without gaining a volume.
func Reconcile(inv Inventory, p Params) (Inventory, Result, error) {
	if err := p.Validate(); err != nil {
		return Inventory{}, Result{}, err
	}

	out := Inventory{
		Disks:   append([]Disk(nil), inv.Disks...),
		Volumes: append([]Volume(nil), inv.Volumes...),
	}

	idx, ok := firstRaw(out.Disks)
	if !ok {
		return out, Result{
			Outcome: OutcomeAlreadyFormatted,
			Message: fmt.Sprintf(msgAlreadyReady, p.DriveLetter),
		}, nil
	}

	out.Disks[idx].PartitionStyle = PartitionStyle(p.PartitionStyle)
	d := out.Disks[idx]

	if v, taken := out.VolumeByLetter(p.DriveLetter); taken {
		holder := "a volume without a disk"
		if v.DiskNumber != nil {
			holder = fmt.Sprintf("disk %d", *v.DiskNumber)
		}
		return out, Result{
			Outcome: OutcomeFailed,
			Disk:    &d,
			Message: fmt.Sprintf("Failed to initialize disk %d as %s: drive letter in use by %s", d.Number, p.DriveLetter, holder),
		}, nil
	}

	number := d.Number
	out.Volumes = append(out.Volumes, Volume{
		DriveLetter: p.DriveLetter,
		FileSystem:  p.FileSystem,
		Label:       p.Label,
		DiskNumber:  &number,
	})
	return out, Result{
		Outcome: OutcomeFormatted,
		Disk:    &d,
		Message: fmt.Sprintf(msgFormatted, p.DriveLetter),
	}, nil
}

// firstRaw returns the index of the lowest-numbered RAW disk.
func firstRaw(disks []Disk) (int, bool) {
	var raw []int
	for i, d := range disks {
		if d.PartitionStyle == StyleRaw {
			raw = append(raw, i)
		}
	}
	if len(raw) == 0 {
		return 0, false
	}
	sort.Slice(raw, func(a, b int) bool { return disks[raw[a]].Number < disks[raw[b]].Number })
	return raw[0], true
}
