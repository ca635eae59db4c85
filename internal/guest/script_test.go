package guest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDefaults(t *testing.T) {
	script, err := Render(DefaultParams())
	require.NoError(t, err)

	assert.Contains(t, script, "Where-Object PartitionStyle -eq 'RAW'")
	assert.Contains(t, script, "Initialize-Disk -PartitionStyle GPT -PassThru")
	assert.Contains(t, script, "New-Partition -DriveLetter D -UseMaximumSize")
	assert.Contains(t, script, `Format-Volume -FileSystem NTFS -NewFileSystemLabel "Data" -Confirm:$false`)
	assert.Contains(t, script, `Write-Host "D: drive created successfully"`)
	assert.Contains(t, script, `Write-Host "No RAW disk found or D: drive already exists"`)
}

func TestRenderSelectsSingleDisk(t *testing.T) {
	script, err := Render(DefaultParams())
	require.NoError(t, err)

	lines := strings.Split(script, "\n")
	require.Greater(t, len(lines), 1)
	assert.Contains(t, lines[1], "Sort-Object Number | Select-Object -First 1")
}

func TestRenderStopsOnCmdletErrors(t *testing.T) {
	script, err := Render(DefaultParams())
	require.NoError(t, err)

	// Storage cmdlets raise non-terminating errors; without Stop the catch
	// block never runs and the success line is printed after a failure.
	firstLine := strings.SplitN(script, "\n", 2)[0]
	assert.Equal(t, "$ErrorActionPreference = 'Stop'", strings.TrimSpace(firstLine))
	assert.Less(t, strings.Index(script, "$ErrorActionPreference"), strings.Index(script, "Initialize-Disk"))
	assert.Contains(t, script, "} catch {")
	assert.Contains(t, script, `Write-Host "Failed to initialize disk $($disk.Number) as D: $_"`)
}

func TestNormalizeDriveLetter(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"D", "D", false},
		{"d:", "D", false},
		{" z: ", "Z", false},
		{"C", "", true},
		{"c:", "", true},
		{"A", "", true},
		{"DE", "", true},
		{"", "", true},
		{"1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDriveLetter(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDriveLetter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderCustomParams(t *testing.T) {
	script, err := Render(Params{DriveLetter: "e:", FileSystem: "ReFS", Label: "Scratch", PartitionStyle: "mbr"})
	require.NoError(t, err)

	assert.Contains(t, script, "-PartitionStyle MBR")
	assert.Contains(t, script, "-DriveLetter E ")
	assert.Contains(t, script, "-FileSystem ReFS")
	assert.Contains(t, script, `-NewFileSystemLabel "Scratch"`)
	assert.NotContains(t, script, "{{")
}

func TestRenderRejectsUnsafeParams(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		want error
	}{
		{"empty letter", Params{FileSystem: "NTFS", Label: "Data", PartitionStyle: "GPT"}, ErrInvalidDriveLetter},
		{"digit letter", Params{DriveLetter: "1", FileSystem: "NTFS", Label: "Data", PartitionStyle: "GPT"}, ErrInvalidDriveLetter},
		{"system letter", Params{DriveLetter: "C:", FileSystem: "NTFS", Label: "Data", PartitionStyle: "GPT"}, ErrInvalidDriveLetter},
		{"label injection", Params{DriveLetter: "D", FileSystem: "NTFS", Label: `Data"; Remove-Item C:\ -Recurse; "`, PartitionStyle: "GPT"}, ErrInvalidLabel},
		{"label variable", Params{DriveLetter: "D", FileSystem: "NTFS", Label: "$env:USERNAME", PartitionStyle: "GPT"}, ErrInvalidLabel},
		{"raw style", Params{DriveLetter: "D", FileSystem: "NTFS", Label: "Data", PartitionStyle: "RAW"}, ErrInvalidPartitionStyle},
		{"filesystem injection", Params{DriveLetter: "D", FileSystem: "NTFS; shutdown", Label: "Data", PartitionStyle: "GPT"}, ErrInvalidFileSystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
