package ncrepair

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnsupportedLayout marks files the native editor cannot rewrite without
// changing their storage layout.
var ErrUnsupportedLayout = errors.New("layout not supported by the native editor")

const (
	ncDimension = 0x0A
	maxNameLen  = 1 << 16
)

// checkLayout reads the classic header of path. A rewrite through the CDF
// writer keeps only CDF-1/CDF-2 files without a record dimension; netCDF-4
// (HDF5), CDF-5 and files with an UNLIMITED dimension are rejected with
// ErrUnsupportedLayout.
func checkLayout(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer fh.Close()
	r := bufio.NewReader(fh)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	switch {
	case string(magic) == "\x89HDF":
		return fmt.Errorf("%w: %s is netCDF-4", ErrUnsupportedLayout, path)
	case string(magic[:3]) != "CDF":
		return fmt.Errorf("%s is not a netCDF file", path)
	case magic[3] == 5:
		return fmt.Errorf("%w: %s is CDF-5", ErrUnsupportedLayout, path)
	case magic[3] != 1 && magic[3] != 2:
		return fmt.Errorf("%s has unknown CDF version %d", path, magic[3])
	}

	// numrecs, then the dimension list tag and count
	var head [3]uint32
	if err := binary.Read(r, binary.BigEndian, &head); err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	tag, ndims := head[1], head[2]
	if tag == 0 {
		return nil
	}
	if tag != ncDimension {
		return fmt.Errorf("%s: malformed dimension list", path)
	}
	for i := uint32(0); i < ndims; i++ {
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return fmt.Errorf("failed to read dimensions of %s: %w", path, err)
		}
		if n > maxNameLen {
			return fmt.Errorf("%s: malformed dimension list", path)
		}
		name := make([]byte, (n+3)&^3)
		if _, err := io.ReadFull(r, name); err != nil {
			return fmt.Errorf("failed to read dimensions of %s: %w", path, err)
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return fmt.Errorf("failed to read dimensions of %s: %w", path, err)
		}
		if length == 0 {
			return fmt.Errorf("%w: %s has record dimension %s", ErrUnsupportedLayout, path, name[:n])
		}
	}
	return nil
}
