// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pallas implements arithmetic over the Pallas curve used by the
// Orchard shielded pool: the base field Fp, the scalar field Fq, and the
// curve group y^2 = x^3 + 5. Field elements encode to 32 bytes
// little-endian; decoding is strict and rejects non-canonical values.
package pallas

import (
	"errors"
	"math/big"
)

// FieldSize is the size of an encoded field element in bytes.
const FieldSize = 32

var (
	// ErrNonCanonical is returned when 32 bytes do not encode a
	// canonical field element (the value is >= the field modulus).
	ErrNonCanonical = errors.New("bytes are not a canonical field element")

	// ErrInvalidLength is returned when an encoding has the wrong size.
	ErrInvalidLength = errors.New("invalid field element length")

	// fieldPrime is the Pallas base field modulus p.
	fieldPrime, _ = new(big.Int).SetString(
		"40000000000000000000000000000000224698fc094cf91b992d30ed00000001", 16)

	// scalarPrime is the Pallas scalar field modulus q (the Vesta base
	// field).
	scalarPrime, _ = new(big.Int).SetString(
		"40000000000000000000000000000000224698fc0994a8dd8c46eb2100000001", 16)
)

// Element is an element of the Pallas base field Fp.
type Element struct {
	v *big.Int
}

// Zero returns the additive identity.
func Zero() *Element {
	return &Element{v: new(big.Int)}
}

// One returns the multiplicative identity.
func One() *Element {
	return &Element{v: big.NewInt(1)}
}

// NewElement reduces the given integer into the field.
func NewElement(v uint64) *Element {
	return &Element{v: new(big.Int).SetUint64(v)}
}

// FromBytes decodes a canonical little-endian field element. Encodings
// that are not strictly below the modulus are rejected: this is the
// validity check the commitment tree applies to every appended cmx.
func FromBytes(b []byte) (*Element, error) {
	if len(b) != FieldSize {
		return nil, ErrInvalidLength
	}
	v := new(big.Int).SetBytes(reverse32(b))
	if v.Cmp(fieldPrime) >= 0 {
		return nil, ErrNonCanonical
	}
	return &Element{v: v}, nil
}

// FromBytesWide reduces a 64-byte little-endian value into the field.
// Used when hashing into the field, where the wide reduction keeps the
// output distribution uniform.
func FromBytesWide(b [64]byte) *Element {
	v := new(big.Int).SetBytes(reverseN(b[:]))
	v.Mod(v, fieldPrime)
	return &Element{v: v}
}

// Bytes returns the canonical 32-byte little-endian encoding.
func (e *Element) Bytes() [FieldSize]byte {
	var out [FieldSize]byte
	b := e.v.Bytes()
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

// Add returns e + other.
func (e *Element) Add(other *Element) *Element {
	v := new(big.Int).Add(e.v, other.v)
	v.Mod(v, fieldPrime)
	return &Element{v: v}
}

// Sub returns e - other.
func (e *Element) Sub(other *Element) *Element {
	v := new(big.Int).Sub(e.v, other.v)
	v.Mod(v, fieldPrime)
	return &Element{v: v}
}

// Mul returns e * other.
func (e *Element) Mul(other *Element) *Element {
	v := new(big.Int).Mul(e.v, other.v)
	v.Mod(v, fieldPrime)
	return &Element{v: v}
}

// Square returns e^2.
func (e *Element) Square() *Element {
	return e.Mul(e)
}

// Neg returns -e.
func (e *Element) Neg() *Element {
	if e.v.Sign() == 0 {
		return Zero()
	}
	return &Element{v: new(big.Int).Sub(fieldPrime, e.v)}
}

// Invert returns e^-1, or an error for the zero element.
func (e *Element) Invert() (*Element, error) {
	if e.v.Sign() == 0 {
		return nil, errors.New("cannot invert zero")
	}
	return &Element{v: new(big.Int).ModInverse(e.v, fieldPrime)}, nil
}

// Pow5 returns e^5, the Poseidon S-box exponent.
func (e *Element) Pow5() *Element {
	sq := e.Square()
	return sq.Square().Mul(e)
}

// Sqrt returns a square root of e if one exists. p = 1 mod 4, so
// Tonelli-Shanks via big.Int ModSqrt is used.
func (e *Element) Sqrt() (*Element, bool) {
	r := new(big.Int).ModSqrt(e.v, fieldPrime)
	if r == nil {
		return nil, false
	}
	return &Element{v: r}, true
}

// IsZero reports whether e is the additive identity.
func (e *Element) IsZero() bool {
	return e.v.Sign() == 0
}

// Equal reports whether two elements are the same field value.
func (e *Element) Equal(other *Element) bool {
	return e.v.Cmp(other.v) == 0
}

// Clone returns an independent copy of e.
func (e *Element) Clone() *Element {
	return &Element{v: new(big.Int).Set(e.v)}
}

// Scalar is an element of the Pallas scalar field Fq.
type Scalar struct {
	v *big.Int
}

// ScalarFromBytes decodes a canonical little-endian scalar.
func ScalarFromBytes(b []byte) (*Scalar, error) {
	if len(b) != FieldSize {
		return nil, ErrInvalidLength
	}
	v := new(big.Int).SetBytes(reverse32(b))
	if v.Cmp(scalarPrime) >= 0 {
		return nil, ErrNonCanonical
	}
	return &Scalar{v: v}, nil
}

// ScalarFromBytesWide reduces a 64-byte little-endian value into the
// scalar field.
func ScalarFromBytesWide(b [64]byte) *Scalar {
	v := new(big.Int).SetBytes(reverseN(b[:]))
	v.Mod(v, scalarPrime)
	return &Scalar{v: v}
}

// NewScalar reduces the given integer into the scalar field.
func NewScalar(v uint64) *Scalar {
	return &Scalar{v: new(big.Int).SetUint64(v)}
}

// Add returns s + other.
func (s *Scalar) Add(other *Scalar) *Scalar {
	v := new(big.Int).Add(s.v, other.v)
	v.Mod(v, scalarPrime)
	return &Scalar{v: v}
}

// Mul returns s * other.
func (s *Scalar) Mul(other *Scalar) *Scalar {
	v := new(big.Int).Mul(s.v, other.v)
	v.Mod(v, scalarPrime)
	return &Scalar{v: v}
}

// Neg returns -s.
func (s *Scalar) Neg() *Scalar {
	if s.v.Sign() == 0 {
		return NewScalar(0)
	}
	return &Scalar{v: new(big.Int).Sub(scalarPrime, s.v)}
}

// Bytes returns the canonical 32-byte little-endian scalar encoding.
func (s *Scalar) Bytes() [FieldSize]byte {
	var out [FieldSize]byte
	b := s.v.Bytes()
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

// IsZero reports whether s is zero.
func (s *Scalar) IsZero() bool {
	return s.v.Sign() == 0
}

// reverse32 returns a big-endian copy of a 32-byte little-endian slice.
func reverse32(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

func reverseN(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}
