package scan

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeHeaders(t *testing.T, sizeOfImage uint32) []byte {
	t.Helper()
	const lfanew = 0x80
	hdr := make([]byte, peHeaderSpan)
	hdr[0], hdr[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(hdr[0x3C:], lfanew)
	copy(hdr[lfanew:], []byte{'P', 'E', 0, 0})

	var buf bytes.Buffer
	fh := pe.FileHeader{Machine: pe.IMAGE_FILE_MACHINE_AMD64, SizeOfOptionalHeader: 240}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, fh))
	oh := pe.OptionalHeader64{Magic: 0x20b, SizeOfImage: sizeOfImage, ImageBase: 0x140000000}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, oh))
	copy(hdr[lfanew+4:], buf.Bytes())
	return hdr
}

func TestSizeOfImage(t *testing.T) {
	size, err := sizeOfImage(fakeHeaders(t, 0x4A3F000))
	require.NoError(t, err)
	require.Equal(t, uint32(0x4A3F000), size)
}

func TestSizeOfImageRejectsGarbage(t *testing.T) {
	_, err := sizeOfImage(make([]byte, peHeaderSpan))
	require.ErrorIs(t, err, errNotPE)

	hdr := fakeHeaders(t, 1)
	binary.LittleEndian.PutUint32(hdr[0x3C:], peHeaderSpan+8)
	_, err = sizeOfImage(hdr)
	require.ErrorIs(t, err, errNotPE)

	hdr = fakeHeaders(t, 1)
	binary.LittleEndian.PutUint16(hdr[0x80+4+20:], 0x10b) // PE32 magic
	_, err = sizeOfImage(hdr)
	require.ErrorIs(t, err, errNotPE)
}
