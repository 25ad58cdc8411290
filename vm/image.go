package vm

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// ImageVersion is the current program image format version.
// Increment when making incompatible changes to the format.
const ImageVersion uint16 = 1

// ImageMagic prefixes every program image: "MOOB" (moo bytecode).
var ImageMagic = []byte{'M', 'O', 'O', 'B'}

var (
	ErrInvalidMagic    = errors.New("invalid magic number: expected MOOB")
	ErrVersionMismatch = errors.New("image version mismatch")
	ErrCorruptImage    = errors.New("corrupt image data")
)

// image is the CBOR body that follows the magic bytes.
type image struct {
	Version      uint16  `cbor:"1,keyasint"`
	Optimized    bool    `cbor:"2,keyasint,omitempty"`
	Instructions Program `cbor:"3,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalImage serializes prog. Only the instruction sequence is stored,
// never machine state.
func MarshalImage(prog Program, optimized bool) ([]byte, error) {
	body, err := cborEncMode.Marshal(image{
		Version:      ImageVersion,
		Optimized:    optimized,
		Instructions: prog,
	})
	if err != nil {
		return nil, fmt.Errorf("vm: marshal image: %w", err)
	}
	return append(append([]byte{}, ImageMagic...), body...), nil
}

// UnmarshalImage decodes an image and checks that every opcode is valid and
// every loop is matched.
func UnmarshalImage(data []byte) (Program, error) {
	if !bytes.HasPrefix(data, ImageMagic) {
		return nil, ErrInvalidMagic
	}
	var img image
	if err := cbor.Unmarshal(data[len(ImageMagic):], &img); err != nil {
		return nil, fmt.Errorf("vm: unmarshal image: %w", err)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, img.Version, ImageVersion)
	}
	depth := 0
	for i, ins := range img.Instructions {
		if !ins.Op.Valid() {
			return nil, fmt.Errorf("%w: opcode %d at %d", ErrCorruptImage, ins.Op, i)
		}
		switch ins.Op {
		case OpLoopStart:
			depth++
		case OpLoopEnd:
			depth--
		}
		if depth < 0 {
			return nil, fmt.Errorf("%w: unmatched moo at %d", ErrCorruptImage, i)
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unmatched MOO", ErrCorruptImage)
	}
	if img.Instructions == nil {
		img.Instructions = Program{}
	}
	return img.Instructions, nil
}

// IsImage reports whether data starts with the image magic.
func IsImage(data []byte) bool {
	return bytes.HasPrefix(data, ImageMagic)
}

// WriteImage saves prog to path.
func WriteImage(path string, prog Program, optimized bool) error {
	data, err := MarshalImage(prog, optimized)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// ReadImage loads a program saved by WriteImage. Undecodable or invalid
// images are reported as IOError wrapping the image error.
func ReadImage(path string) (Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	prog, err := UnmarshalImage(data)
	if err != nil {
		return nil, &IOError{Op: "decode", Path: path, Err: err}
	}
	return prog, nil
}
