// Package artifact collects the indicators of a generated or compiled file:
// its hashes, and for PE images the .NET output type and the PDB path.
package artifact

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"debug/pe"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnknownOutputType is returned for PE images that are neither a
// library nor a console or windows executable
var ErrUnknownOutputType = errors.New("unknown output type")

const (
	Library = "Library"
	Exe     = "Exe"
	WinExe  = "WinExe"
)

// debugTypeCodeView is IMAGE_DEBUG_TYPE_CODEVIEW
const debugTypeCodeView = 2

// debugDirectorySize is the size of one IMAGE_DEBUG_DIRECTORY entry
const debugDirectorySize = 28

type Hashes struct {
	MD5    string `json:"md5" yaml:"md5"`
	SHA1   string `json:"sha1" yaml:"sha1"`
	SHA256 string `json:"sha256" yaml:"sha256"`
}

// Report is what agbridge prints about a file it wrote or was pointed at
type Report struct {
	Path   string `json:"path" yaml:"path"`
	Size   int64  `json:"size" yaml:"size"`
	Hashes `yaml:",inline"`
	// OutputType and PDB are only set for PE images
	OutputType string `json:"output_type,omitempty" yaml:"output_type,omitempty"`
	PDB        string `json:"pdb,omitempty" yaml:"pdb,omitempty"`
}

// HashFile streams the file at path through md5, sha1 and sha256
func HashFile(path string) (Hashes, error) {
	file, err := os.Open(path)
	if err != nil {
		return Hashes{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	h5, h1, h256 := md5.New(), sha1.New(), sha256.New()
	if _, err := io.Copy(io.MultiWriter(h5, h1, h256), file); err != nil {
		return Hashes{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return Hashes{
		MD5:    hex.EncodeToString(h5.Sum(nil)),
		SHA1:   hex.EncodeToString(h1.Sum(nil)),
		SHA256: hex.EncodeToString(h256.Sum(nil)),
	}, nil
}

// Inspect hashes path and, when it is a PE image, reads its output type
// and PDB path. Files that are not PE images only get hashes.
func Inspect(path string) (Report, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Report{}, err
	}
	hashes, err := HashFile(path)
	if err != nil {
		return Report{}, err
	}
	r := Report{Path: path, Size: fi.Size(), Hashes: hashes}

	f, err := pe.Open(path)
	if err != nil {
		return r, nil
	}
	defer f.Close()

	if t, err := outputType(f); err == nil {
		r.OutputType = t
	}
	pdb, err := pdbPath(f)
	if err != nil {
		return r, fmt.Errorf("%s: %w", path, err)
	}
	r.PDB = pdb
	return r, nil
}

// OutputType returns Library, Exe or WinExe for the PE image at path
func OutputType(path string) (string, error) {
	f, err := pe.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return outputType(f)
}

func outputType(f *pe.File) (string, error) {
	if f.Characteristics&pe.IMAGE_FILE_DLL != 0 {
		return Library, nil
	}
	var subsystem uint16
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		subsystem = oh.Subsystem
	case *pe.OptionalHeader64:
		subsystem = oh.Subsystem
	}
	switch subsystem {
	case pe.IMAGE_SUBSYSTEM_WINDOWS_CUI:
		return Exe, nil
	case pe.IMAGE_SUBSYSTEM_WINDOWS_GUI:
		return WinExe, nil
	}
	return "", fmt.Errorf("%w: subsystem %d", ErrUnknownOutputType, subsystem)
}

// PDB returns the program database path recorded in the PE image at path,
// or an empty string when the image has none
func PDB(path string) (string, error) {
	f, err := pe.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return pdbPath(f)
}

func pdbPath(f *pe.File) (string, error) {
	var dir pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes > pe.IMAGE_DIRECTORY_ENTRY_DEBUG {
			dir = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_DEBUG]
		}
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes > pe.IMAGE_DIRECTORY_ENTRY_DEBUG {
			dir = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_DEBUG]
		}
	}
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return "", nil
	}

	entries, err := readRVA(f, dir.VirtualAddress, dir.Size)
	if err != nil {
		return "", fmt.Errorf("reading debug directory: %w", err)
	}
	for off := 0; off+debugDirectorySize <= len(entries); off += debugDirectorySize {
		e := entries[off : off+debugDirectorySize]
		if binary.LittleEndian.Uint32(e[12:]) != debugTypeCodeView {
			continue
		}
		size := binary.LittleEndian.Uint32(e[16:])
		rva := binary.LittleEndian.Uint32(e[20:])
		info, err := readRVA(f, rva, size)
		if err != nil {
			return "", fmt.Errorf("reading codeview record: %w", err)
		}
		// RSDS signature, 16 byte guid, 4 byte age, then a NUL terminated path
		if len(info) < 24 || string(info[:4]) != "RSDS" {
			continue
		}
		path := info[24:]
		if i := bytes.IndexByte(path, 0); i >= 0 {
			path = path[:i]
		}
		return string(path), nil
	}
	return "", nil
}

// readRVA returns size bytes starting at the relative virtual address rva
func readRVA(f *pe.File, rva, size uint32) ([]byte, error) {
	for _, s := range f.Sections {
		if rva < s.VirtualAddress || rva >= s.VirtualAddress+s.Size {
			continue
		}
		b := make([]byte, size)
		if _, err := s.ReadAt(b, int64(rva-s.VirtualAddress)); err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("address %#x is outside every section", rva)
}
