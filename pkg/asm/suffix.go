package asm

import (
	"errors"
	"fmt"
)

// Sized is anything with a byte width: an asm.Width or a *types.Type.
type Sized interface {
	Size() int64
}

// Width is a literal operand width in bytes.
type Width int64

const (
	Byte Width = 1
	Word Width = 2
	Long Width = 4
	Quad Width = 8
)

func (w Width) Size() int64 { return int64(w) }

var ErrUnsupportedWidth = errors.New("unsupported operand width")

// WidthError reports an operand width the suffix resolver cannot encode.
// Mnemonic is empty when the width was checked outside an instruction.
type WidthError struct {
	Width    int64
	Mnemonic string
}

func (e *WidthError) Error() string {
	if e.Mnemonic == "" {
		return fmt.Sprintf("%v: %d bytes", ErrUnsupportedWidth, e.Width)
	}
	return fmt.Sprintf("%v: %d bytes (in %s)", ErrUnsupportedWidth, e.Width, e.Mnemonic)
}

func (e *WidthError) Unwrap() error { return ErrUnsupportedWidth }

// SuffixFor maps a byte width to its AT&T mnemonic suffix.
func SuffixFor(width int64) (string, error) {
	switch width {
	case 1:
		return "b", nil
	case 2:
		return "w", nil
	case 4:
		return "l", nil
	default:
		return "", &WidthError{Width: width}
	}
}

// DualSuffix is the source-then-destination suffix used by movs/movz.
func DualSuffix(from, to int64) (string, error) {
	a, err := SuffixFor(from)
	if err != nil {
		return "", err
	}
	b, err := SuffixFor(to)
	if err != nil {
		return "", err
	}
	return a + b, nil
}

// Align rounds n up to a multiple of alignment.
func Align(n, alignment int64) int64 {
	return (n + alignment - 1) / alignment * alignment
}
