package guest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DiskQuery prints the guest's disks and lettered volumes as one JSON
// object. Volumes without a partition, such as an optical drive, carry a
// null DiskNumber. The letter is stringified because ConvertTo-Json
// encodes a [char] as its code point.
const DiskQuery = `$disks = @(Get-Disk | Select-Object Number, FriendlyName, Size, PartitionStyle); ` +
	`$volumes = @(Get-Volume | Where-Object { "$($_.DriveLetter)" -match '^[A-Za-z]$' } | ForEach-Object { ` +
	`$part = Get-Partition -DriveLetter $_.DriveLetter -ErrorAction SilentlyContinue; ` +
	`[pscustomobject]@{ DriveLetter = "$($_.DriveLetter)"; FileSystem = $_.FileSystem; Label = $_.FileSystemLabel; DiskNumber = $part.DiskNumber } }); ` +
	`[pscustomobject]@{ Disks = $disks; Volumes = $volumes } | ConvertTo-Json -Compress -Depth 3`

// PartitionStyle is the partition table type reported by Get-Disk.
type PartitionStyle string

const (
	StyleRaw PartitionStyle = "RAW"
	StyleMBR PartitionStyle = "MBR"
	StyleGPT PartitionStyle = "GPT"
)

// UnmarshalJSON accepts both the display name ("RAW") and the numeric
// MSFT_Disk value (0 = RAW, 1 = MBR, 2 = GPT).
func (s *PartitionStyle) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		switch n {
		case 0:
			*s = StyleRaw
		case 1:
			*s = StyleMBR
		case 2:
			*s = StyleGPT
		default:
			return fmt.Errorf("unknown partition style %d", n)
		}
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("parse partition style: %w", err)
	}
	*s = PartitionStyle(strings.ToUpper(str))
	return nil
}

// Volume is a lettered volume in the guest.
type Volume struct {
	DriveLetter string `json:"DriveLetter"`
	FileSystem  string `json:"FileSystem"`
	Label       string `json:"Label"`

	// DiskNumber is nil for volumes not backed by a disk partition.
	DiskNumber *int `json:"DiskNumber"`
}

// Disk is one entry of the Get-Disk output.
type Disk struct {
	Number         int            `json:"Number"`
	FriendlyName   string         `json:"FriendlyName"`
	Size           uint64         `json:"Size"`
	PartitionStyle PartitionStyle `json:"PartitionStyle"`
}

// Inventory is the guest storage reported by DiskQuery.
type Inventory struct {
	Disks   []Disk   `json:"Disks"`
	Volumes []Volume `json:"Volumes"`
}

// VolumeByLetter returns the volume holding letter, if any.
func (inv Inventory) VolumeByLetter(letter string) (Volume, bool) {
	for _, v := range inv.Volumes {
		if strings.EqualFold(v.DriveLetter, letter) {
			return v, true
		}
	}
	return Volume{}, false
}

// ParseInventory decodes DiskQuery output. A bare Get-Disk listing, as an
// array or a single object, is accepted too and yields no volumes.
func ParseInventory(data []byte) (Inventory, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Inventory{}, nil
	}

	if data[0] == '{' {
		var wrapped struct {
			Disks   json.RawMessage `json:"Disks"`
			Volumes json.RawMessage `json:"Volumes"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return Inventory{}, fmt.Errorf("parse inventory: %w", err)
		}
		if wrapped.Disks != nil {
			var inv Inventory
			var err error
			if inv.Disks, err = decodeList[Disk](wrapped.Disks); err != nil {
				return Inventory{}, fmt.Errorf("parse disk list: %w", err)
			}
			if inv.Volumes, err = decodeList[Volume](wrapped.Volumes); err != nil {
				return Inventory{}, fmt.Errorf("parse volume list: %w", err)
			}
			return inv, nil
		}
	}

	disks, err := decodeList[Disk](data)
	if err != nil {
		return Inventory{}, fmt.Errorf("parse disk list: %w", err)
	}
	return Inventory{Disks: disks}, nil
}

// decodeList decodes a JSON array or, since ConvertTo-Json unwraps
// one-element arrays, a single object.
func decodeList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return []T{item}, nil
}
