package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Checksum identifies one release of the host executable.
// It is the SHA-256 digest of the executable file on disk.
type Checksum [ChecksumLen]byte

// ChecksumLen is the length of a checksum in bytes.
const ChecksumLen = 32

// NewChecksum hashes the given executable contents.
func NewChecksum(image []byte) Checksum {
	return sha256.Sum256(image)
}

func (cs Checksum) String() string {
	return hex.EncodeToString(cs[:])
}

// IsZero reports whether the checksum was never set. A zero checksum in a
// patch profile matches any executable.
func (cs Checksum) IsZero() bool {
	return cs == Checksum{}
}

// MarshalText implements encoding.TextMarshaler so the checksum is written as hex
// in both JSON and YAML.
func (cs Checksum) MarshalText() ([]byte, error) {
	return []byte(cs.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (cs *Checksum) UnmarshalText(input []byte) error {
	data, err := hex.DecodeString(string(input))
	if err != nil {
		return err
	}
	if len(data) != ChecksumLen {
		return fmt.Errorf("got wrong number of bytes for checksum")
	}
	copy(cs[:], data)
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Checksum.
func (cs Checksum) MarshalJSON() ([]byte, error) {
	return json.Marshal(cs.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Checksum.
func (cs *Checksum) UnmarshalJSON(input []byte) error {
	var hexString string
	if err := json.Unmarshal(input, &hexString); err != nil {
		return err
	}
	return cs.UnmarshalText([]byte(hexString))
}
