package artifact

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	peOffset      = 0x40
	sectionRVA    = 0x1000
	sectionOffset = 0x200
	sectionSize   = 0x200
	codeViewRVA   = sectionRVA + 0x40
)

// image builds a minimal 64 bit PE image with one section holding a debug
// directory that points at a CodeView record for pdb, if any
func image(t *testing.T, characteristics, subsystem uint16, pdb string) []byte {
	t.Helper()
	var buf bytes.Buffer
	le := binary.LittleEndian

	dos := make([]byte, peOffset)
	copy(dos, "MZ")
	le.PutUint32(dos[0x3c:], peOffset)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	oh := pe.OptionalHeader64{
		Magic:               0x20b,
		ImageBase:           0x140000000,
		SectionAlignment:    0x1000,
		FileAlignment:       0x200,
		SizeOfImage:         0x2000,
		SizeOfHeaders:       sectionOffset,
		Subsystem:           subsystem,
		NumberOfRvaAndSizes: 16,
	}
	if pdb != "" {
		oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_DEBUG] = pe.DataDirectory{VirtualAddress: sectionRVA, Size: 28}
	}
	fh := pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(binary.Size(oh)),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | characteristics,
	}
	sh := pe.SectionHeader32{
		VirtualSize:      sectionSize,
		VirtualAddress:   sectionRVA,
		SizeOfRawData:    sectionSize,
		PointerToRawData: sectionOffset,
		Characteristics:  pe.IMAGE_SCN_CNT_INITIALIZED_DATA | pe.IMAGE_SCN_MEM_READ,
	}
	copy(sh.Name[:], ".rdata")
	for _, v := range []interface{}{fh, oh, sh} {
		require.NoError(t, binary.Write(&buf, le, v))
	}

	out := make([]byte, sectionOffset+sectionSize)
	copy(out, buf.Bytes())
	if pdb != "" {
		record := append([]byte("RSDS"), make([]byte, 20)...)
		record = append(append(record, pdb...), 0)

		entry := out[sectionOffset:]
		le.PutUint32(entry[12:], 2)
		le.PutUint32(entry[16:], uint32(len(record)))
		le.PutUint32(entry[20:], codeViewRVA)
		le.PutUint32(entry[24:], sectionOffset+0x40)
		copy(out[sectionOffset+0x40:], record)
	}
	return out
}

func write(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestHashFile(t *testing.T) {
	path := write(t, "payload.bin", []byte("abc"))

	h, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, Hashes{
		MD5:    "900150983cd24fb0d6963f7d28e17f72",
		SHA1:   "a9993e364706816aba3e25717850c26c9cd0d89d",
		SHA256: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
	}, h)

	_, err = HashFile(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestOutputType(t *testing.T) {
	tests := []struct {
		name            string
		characteristics uint16
		subsystem       uint16
		expected        string
	}{
		{"library", pe.IMAGE_FILE_DLL, pe.IMAGE_SUBSYSTEM_WINDOWS_CUI, Library},
		{"console", 0, pe.IMAGE_SUBSYSTEM_WINDOWS_CUI, Exe},
		{"windows", 0, pe.IMAGE_SUBSYSTEM_WINDOWS_GUI, WinExe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write(t, "out.exe", image(t, tt.characteristics, tt.subsystem, ""))
			got, err := OutputType(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	path := write(t, "native.sys", image(t, 0, pe.IMAGE_SUBSYSTEM_NATIVE, ""))
	_, err := OutputType(path)
	assert.True(t, errors.Is(err, ErrUnknownOutputType), "%v", err)
}

func TestPDB(t *testing.T) {
	pdbFile := `C:\Users\dev\source\repos\Loader\obj\x64\Release\Loader.pdb`
	path := write(t, "Loader.exe", image(t, 0, pe.IMAGE_SUBSYSTEM_WINDOWS_GUI, pdbFile))

	got, err := PDB(path)
	require.NoError(t, err)
	assert.Equal(t, pdbFile, got)

	bare := write(t, "Bare.exe", image(t, 0, pe.IMAGE_SUBSYSTEM_WINDOWS_GUI, ""))
	got, err = PDB(bare)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInspect(t *testing.T) {
	data := image(t, pe.IMAGE_FILE_DLL, pe.IMAGE_SUBSYSTEM_WINDOWS_CUI, `C:\build\Helper.pdb`)
	path := write(t, "Helper.dll", data)

	r, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, path, r.Path)
	assert.Equal(t, int64(len(data)), r.Size)
	assert.Len(t, r.SHA256, 64)
	assert.Equal(t, Library, r.OutputType)
	assert.Equal(t, `C:\build\Helper.pdb`, r.PDB)
}

func TestInspectNotAnImage(t *testing.T) {
	path := write(t, "beacon.ps1", bytes.Repeat([]byte("$s=New-Object IO.MemoryStream;"), 8))

	r, err := Inspect(path)
	require.NoError(t, err)
	assert.Len(t, r.MD5, 32)
	assert.Empty(t, r.OutputType)
	assert.Empty(t, r.PDB)

	_, err = Inspect(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
