// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package poseidon implements the Poseidon permutation over the Pallas
// base field with width 3, the x^5 S-box, 8 full rounds, and 56 partial
// rounds. It backs the Orchard merkle combine and the note PRFs.
package poseidon

import (
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/robustfengbin/zwallet/crypto/pallas"
)

const (
	// Width is the permutation state width in field elements.
	Width = 3

	// FullRounds is the number of full (all-lane S-box) rounds.
	FullRounds = 8

	// PartialRounds is the number of partial (single-lane S-box) rounds.
	PartialRounds = 56
)

// roundConstantPersonal seeds the deterministic round-constant
// expansion. Changing it changes every hash in the tree.
const roundConstantPersonal = "zwallet_PoseidonRC"

var (
	constantsOnce  sync.Once
	roundConstants [][Width]*pallas.Element
	mdsMatrix      [Width][Width]*pallas.Element
)

// initConstants derives the round constants and MDS matrix once. Round
// constants come from a counter-mode BLAKE2b-512 expansion reduced wide
// into the field; the MDS matrix is the Cauchy matrix 1/(x_i + y_j)
// with x_i = i and y_j = Width + j, which is invertible over Fp.
func initConstants() {
	total := FullRounds + PartialRounds
	roundConstants = make([][Width]*pallas.Element, total)

	ctr := uint32(0)
	next := func() *pallas.Element {
		var seed [8]byte
		binary.LittleEndian.PutUint32(seed[:4], ctr)
		ctr++
		h, _ := blake2b.New512([]byte(nil))
		h.Write([]byte(roundConstantPersonal))
		h.Write(seed[:])
		var wide [64]byte
		copy(wide[:], h.Sum(nil))
		return pallas.FromBytesWide(wide)
	}

	for r := 0; r < total; r++ {
		for i := 0; i < Width; i++ {
			roundConstants[r][i] = next()
		}
	}

	for i := 0; i < Width; i++ {
		for j := 0; j < Width; j++ {
			sum := pallas.NewElement(uint64(i + Width + j))
			inv, err := sum.Invert()
			if err != nil {
				panic("poseidon: singular mds entry")
			}
			mdsMatrix[i][j] = inv
		}
	}
}

// Permute applies the Poseidon permutation to the given state in place.
func Permute(state *[Width]*pallas.Element) {
	constantsOnce.Do(initConstants)

	half := FullRounds / 2
	round := 0

	for r := 0; r < half; r++ {
		fullRound(state, round)
		round++
	}
	for r := 0; r < PartialRounds; r++ {
		partialRound(state, round)
		round++
	}
	for r := 0; r < half; r++ {
		fullRound(state, round)
		round++
	}
}

func fullRound(state *[Width]*pallas.Element, round int) {
	for i := 0; i < Width; i++ {
		state[i] = state[i].Add(roundConstants[round][i]).Pow5()
	}
	applyMDS(state)
}

func partialRound(state *[Width]*pallas.Element, round int) {
	for i := 0; i < Width; i++ {
		state[i] = state[i].Add(roundConstants[round][i])
	}
	state[0] = state[0].Pow5()
	applyMDS(state)
}

func applyMDS(state *[Width]*pallas.Element) {
	var out [Width]*pallas.Element
	for i := 0; i < Width; i++ {
		acc := pallas.Zero()
		for j := 0; j < Width; j++ {
			acc = acc.Add(mdsMatrix[i][j].Mul(state[j]))
		}
		out[i] = acc
	}
	*state = out
}

// Hash absorbs two field elements and squeezes one, with a domain
// separator in the capacity lane. This is the two-to-one compression
// used for merkle nodes and the note PRFs.
func Hash(domain uint64, a, b *pallas.Element) *pallas.Element {
	state := [Width]*pallas.Element{
		a.Clone(),
		b.Clone(),
		pallas.NewElement(domain),
	}
	Permute(&state)
	return state[0]
}
