package abi

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/modhook/hostlink/host"
	"github.com/modhook/hostlink/types"
)

// FString is the host's text type: UTF-16 code units including a trailing NUL.
type FString = TArray[uint16]

// String is an FString owned by injected code.
type String struct {
	Array[uint16]
}

// NewString encodes text as a NUL-terminated FString allocated through alloc.
func NewString(alloc *host.Allocator, text string) (*String, error) {
	units, err := EncodeText(text)
	if err != nil {
		return nil, err
	}
	s := &String{Array: Array[uint16]{alloc: alloc}}
	s.Extend(units)
	return s, nil
}

// Text decodes the string.
func (s *String) Text() (string, error) {
	return DecodeText(s.Slice())
}

// EncodeText converts UTF-8 text to UTF-16 with a trailing NUL.
func EncodeText(text string) ([]uint16, error) {
	if !utf8.ValidString(text) {
		return nil, types.DecodeError{Offset: invalidUTF8Offset(text), Msg: "invalid UTF-8"}
	}
	units := utf16.Encode([]rune(text))
	return append(units, 0), nil
}

// DecodeText converts host text to UTF-8. Trailing NUL padding is stripped;
// unpaired surrogates are an error rather than being replaced.
func DecodeText(units []uint16) (string, error) {
	end := len(units)
	for end > 0 && units[end-1] == 0 {
		end--
	}
	units = units[:end]
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u < 0xDC00:
			if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] > 0xDFFF {
				return "", types.DecodeError{Offset: i, Msg: "unpaired high surrogate"}
			}
			i++
		case u >= 0xDC00 && u <= 0xDFFF:
			return "", types.DecodeError{Offset: i, Msg: "unpaired low surrogate"}
		}
	}
	return string(utf16.Decode(units)), nil
}

// TextOf decodes a borrowed FString.
func TextOf(s *FString) (string, error) {
	return DecodeText(s.Slice())
}

func invalidUTF8Offset(text string) int {
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(text)
}
