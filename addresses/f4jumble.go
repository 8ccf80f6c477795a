// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addresses

import (
	"errors"

	"github.com/dchest/blake2b"
)

// F4Jumble is the length-preserving permutation ZIP-316 applies to the
// unified-address payload before Bech32m encoding. It is a four-round
// unkeyed Feistel network over BLAKE2b-512:
//
//	y = b ^ G(0, a);  x = a ^ H(0, y)
//	v = y ^ G(1, x);  u = x ^ H(1, v)
//	output = u || v
//
// where a is the left part (at most 64 bytes) and b the remainder.

const (
	// f4MinLen and f4MaxLen bound valid F4Jumble message lengths.
	f4MinLen = 48
	f4MaxLen = 4_194_368

	f4LeftMax = 64
)

var (
	// ErrJumbleLength is returned for messages outside the valid
	// F4Jumble length range.
	ErrJumbleLength = errors.New("message length outside F4Jumble range")
)

// F4Jumble applies the forward permutation.
func F4Jumble(msg []byte) ([]byte, error) {
	if len(msg) < f4MinLen || len(msg) > f4MaxLen {
		return nil, ErrJumbleLength
	}

	lenL := len(msg) / 2
	if lenL > f4LeftMax {
		lenL = f4LeftMax
	}

	a := append([]byte(nil), msg[:lenL]...)
	b := append([]byte(nil), msg[lenL:]...)

	xorInto(b, gRound(0, a, len(b)))
	xorInto(a, hRound(0, b, len(a)))
	xorInto(b, gRound(1, a, len(b)))
	xorInto(a, hRound(1, b, len(a)))

	return append(a, b...), nil
}

// F4JumbleInverse applies the inverse permutation.
func F4JumbleInverse(msg []byte) ([]byte, error) {
	if len(msg) < f4MinLen || len(msg) > f4MaxLen {
		return nil, ErrJumbleLength
	}

	lenL := len(msg) / 2
	if lenL > f4LeftMax {
		lenL = f4LeftMax
	}

	a := append([]byte(nil), msg[:lenL]...)
	b := append([]byte(nil), msg[lenL:]...)

	xorInto(a, hRound(1, b, len(a)))
	xorInto(b, gRound(1, a, len(b)))
	xorInto(a, hRound(0, b, len(a)))
	xorInto(b, gRound(0, a, len(b)))

	return append(a, b...), nil
}

// hRound produces outLen bytes with a single personalized BLAKE2b call.
func hRound(i byte, input []byte, outLen int) []byte {
	person := make([]byte, 16)
	copy(person, "UA_F4Jumble_H")
	person[13] = i

	h, err := blake2b.New(&blake2b.Config{Size: uint8(outLen), Person: person})
	if err != nil {
		panic("addresses: blake2b config rejected: " + err.Error())
	}
	h.Write(input)
	return h.Sum(nil)
}

// gRound produces outLen bytes by concatenating full-width BLAKE2b
// blocks indexed by a counter in the personalization.
func gRound(i byte, input []byte, outLen int) []byte {
	out := make([]byte, 0, outLen)
	for j := 0; len(out) < outLen; j++ {
		person := make([]byte, 16)
		copy(person, "UA_F4Jumble_G")
		person[13] = i
		person[14] = byte(j)
		person[15] = byte(j >> 8)

		h, err := blake2b.New(&blake2b.Config{Size: 64, Person: person})
		if err != nil {
			panic("addresses: blake2b config rejected: " + err.Error())
		}
		h.Write(input)
		out = append(out, h.Sum(nil)...)
	}
	return out[:outLen]
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}
