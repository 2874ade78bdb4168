package scan

// Protector temporarily makes a range of image memory writable and
// executable. The returned restore func puts the previous protection back.
type Protector interface {
	Unprotect(mem []byte) (restore func() error, err error)
}

// NopProtector is used for plain byte slices, such as an executable read
// from disk.
type NopProtector struct{}

func (NopProtector) Unprotect([]byte) (func() error, error) {
	return func() error { return nil }, nil
}
