package artifact

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"irpipe/internal/ir"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("artifact: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a Bundle to CBOR bytes.
func Marshal(b *Bundle) ([]byte, error) {
	return cborEncMode.Marshal(b)
}

// Unmarshal deserializes a Bundle from CBOR bytes.
func Unmarshal(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("artifact: unmarshal bundle: %w", err)
	}
	return &b, nil
}

// MarshalScopes encodes scope trees and serializes the bundle in one step
func MarshalScopes(roots []*ir.Scope, opts Options) ([]byte, error) {
	return Marshal(Encode(roots, opts))
}

// WriteFile writes the encoded scopes to path
func WriteFile(path string, roots []*ir.Scope, opts Options) error {
	data, err := MarshalScopes(roots, opts)
	if err != nil {
		return fmt.Errorf("artifact: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	return nil
}

// ReadFile reads and decodes a bundle written by WriteFile
func ReadFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	return Unmarshal(data)
}
