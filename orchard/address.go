// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package orchard

import (
	"fmt"

	"github.com/robustfengbin/zwallet/crypto/pallas"
)

const (
	// DiversifierSize is the size of an address diversifier.
	DiversifierSize = 11

	// RawAddressSize is diversifier || pk_d.
	RawAddressSize = 43
)

// Address is a diversified Orchard payment address.
type Address struct {
	d   [DiversifierSize]byte
	pkd *pallas.Point
}

// Diversifier returns the address diversifier.
func (a *Address) Diversifier() [DiversifierSize]byte {
	return a.d
}

// PkD returns the diversified transmission key.
func (a *Address) PkD() *pallas.Point {
	return a.pkd
}

// Bytes returns the 43-byte raw address encoding.
func (a *Address) Bytes() [RawAddressSize]byte {
	var out [RawAddressSize]byte
	copy(out[:DiversifierSize], a.d[:])
	pkd := a.pkd.Bytes()
	copy(out[DiversifierSize:], pkd[:])
	return out
}

// AddressFromBytes decodes a 43-byte raw address.
func AddressFromBytes(b []byte) (*Address, error) {
	if len(b) != RawAddressSize {
		return nil, fmt.Errorf("%w: raw address must be %d bytes, got %d",
			ErrAddressGeneration, RawAddressSize, len(b))
	}
	pkd, err := pallas.PointFromBytes(b[DiversifierSize:])
	if err != nil {
		return nil, fmt.Errorf("%w: bad pk_d: %v", ErrAddressGeneration, err)
	}
	addr := &Address{pkd: pkd}
	copy(addr.d[:], b[:DiversifierSize])
	return addr, nil
}

// DiversifierBase maps a diversifier to its curve base point g_d.
func DiversifierBase(d [DiversifierSize]byte) *pallas.Point {
	digest := func(data []byte) [64]byte {
		var out [64]byte
		copy(out[:], prfPersonal(personGd, 64, data))
		return out
	}
	return pallas.HashToPoint(digest, d[:])
}

// DiversifierAt derives the diversifier for an address index from the
// viewing key.
func (fvk *FullViewingKey) DiversifierAt(index uint32) [DiversifierSize]byte {
	b := fvk.Bytes()
	data := make([]byte, 0, FullViewingKeySize+4)
	data = append(data, b[:]...)
	data = append(data, byte(index), byte(index>>8), byte(index>>16), byte(index>>24))

	var d [DiversifierSize]byte
	copy(d[:], prfPersonal(personDiv, DiversifierSize, data))
	return d
}

// AddressAt derives the diversified address at the given index for the
// given scope: pk_d = [ivk] g_d.
func (fvk *FullViewingKey) AddressAt(index uint32, scope Scope) *Address {
	d := fvk.DiversifierAt(index)
	gd := DiversifierBase(d)
	ivk := fvk.IncomingViewingKey(scope)
	return &Address{d: d, pkd: gd.ScalarMult(ivk.ivk)}
}

// ChangeAddress returns the internal-scope address change outputs pay
// to.
func (fvk *FullViewingKey) ChangeAddress() *Address {
	return fvk.AddressAt(0, Internal)
}
