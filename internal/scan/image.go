package scan

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
)

// peHeaderSpan is how much of a mapped image is read to locate its headers.
const peHeaderSpan = 0x1000

var errNotPE = errors.New("not a PE image")

// sizeOfImage reads SizeOfImage from the DOS and PE headers at the start of a
// mapped 64-bit image.
func sizeOfImage(hdr []byte) (uint32, error) {
	if len(hdr) < 0x40 || hdr[0] != 'M' || hdr[1] != 'Z' {
		return 0, errNotPE
	}
	lfanew := binary.LittleEndian.Uint32(hdr[0x3C:])
	if uint64(lfanew)+4 > uint64(len(hdr)) {
		return 0, fmt.Errorf("e_lfanew 0x%x outside headers: %w", lfanew, errNotPE)
	}
	if !bytes.Equal(hdr[lfanew:lfanew+4], []byte{'P', 'E', 0, 0}) {
		return 0, errNotPE
	}
	r := bytes.NewReader(hdr[lfanew+4:])
	var fh pe.FileHeader
	if err := binary.Read(r, binary.LittleEndian, &fh); err != nil {
		return 0, fmt.Errorf("read file header: %w", err)
	}
	var oh pe.OptionalHeader64
	if err := binary.Read(r, binary.LittleEndian, &oh); err != nil {
		return 0, fmt.Errorf("read optional header: %w", err)
	}
	if oh.Magic != 0x20b {
		return 0, fmt.Errorf("optional header magic 0x%x: %w", oh.Magic, errNotPE)
	}
	return oh.SizeOfImage, nil
}
