package scan

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/modhook/hostlink/types"
)

// Image is a loaded module: its base address and a view of its bytes.
type Image struct {
	Base uintptr
	Mem  []byte
	// Path is the file the image was loaded from, if known.
	Path string
}

// Result describes an applied patch.
type Result struct {
	Signature string
	Match     int
	Offset    int
	Address   uintptr
}

// Patcher writes signature replacements into an image.
type Patcher struct {
	prot   Protector
	logger zerolog.Logger
}

// NewPatcher returns a patcher that lifts page protection through prot.
func NewPatcher(prot Protector, logger zerolog.Logger) *Patcher {
	return &Patcher{prot: prot, logger: logger}
}

// Apply finds sig in img and overwrites the bytes at match+Delta.
func (p *Patcher) Apply(img *Image, sig Signature) (Result, error) {
	if err := sig.Validate(); err != nil {
		return Result{}, err
	}
	match, ok := Find(img.Mem, sig.Pattern)
	if !ok {
		return Result{}, fmt.Errorf("signature %q: %w", sig.Name, types.ErrPatternNotFound)
	}
	offset := match + sig.Delta
	end := offset + len(sig.Replacement)
	if end > len(img.Mem) {
		return Result{}, fmt.Errorf("signature %q at 0x%x: write [0x%x, 0x%x) exceeds image size 0x%x: %w",
			sig.Name, match, offset, end, len(img.Mem), types.ErrPatchOutOfRange)
	}

	target := img.Mem[offset:end]
	restore, err := p.prot.Unprotect(target)
	if err != nil {
		return Result{}, fmt.Errorf("signature %q: unprotect 0x%x: %w", sig.Name, img.Base+uintptr(offset), err)
	}
	copy(target, sig.Replacement)
	if err := restore(); err != nil {
		// the bytes are written; a failed restore leaves the page writable
		p.logger.Warn().Err(err).Str("signature", sig.Name).Msg("could not restore page protection")
	}

	res := Result{
		Signature: sig.Name,
		Match:     match,
		Offset:    offset,
		Address:   img.Base + uintptr(offset),
	}
	p.logger.Info().
		Str("signature", sig.Name).
		Str("match", fmt.Sprintf("0x%x", match)).
		Str("address", fmt.Sprintf("0x%x", res.Address)).
		Msg("patch applied")
	return res, nil
}

// ApplyFirst applies the first signature that fits the executable identified
// by sum and occurs in img. Signatures pinned to another checksum are skipped.
func (p *Patcher) ApplyFirst(img *Image, sum types.Checksum, sigs []Signature) (Result, error) {
	var errs []error
	for _, sig := range sigs {
		if !sig.Checksum.IsZero() && sig.Checksum != sum {
			p.logger.Debug().Str("signature", sig.Name).Str("want", sig.Checksum.String()).Msg("skipping signature for another release")
			errs = append(errs, fmt.Errorf("signature %q: %w", sig.Name, types.ErrChecksumMismatch))
			continue
		}
		res, err := p.Apply(img, sig)
		if err == nil {
			return res, nil
		}
		p.logger.Debug().Err(err).Str("signature", sig.Name).Msg("signature not applied")
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Result{}, fmt.Errorf("no signatures configured: %w", types.ErrPatternNotFound)
	}
	return Result{}, errors.Join(errs...)
}
