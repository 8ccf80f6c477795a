// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pallas

import (
	"errors"
	"math/big"
)

var (
	// ErrNotOnCurve is returned when coordinates do not satisfy the
	// curve equation.
	ErrNotOnCurve = errors.New("point is not on the pallas curve")

	// curveB is the constant term of y^2 = x^3 + 5.
	curveB = NewElement(5)
)

// Point is a point on the Pallas curve in affine coordinates, with the
// point at infinity represented by infinity == true.
type Point struct {
	x, y     *Element
	infinity bool
}

// Identity returns the point at infinity.
func Identity() *Point {
	return &Point{x: Zero(), y: Zero(), infinity: true}
}

// Generator returns the fixed group generator (-1, 2).
func Generator() *Point {
	return &Point{x: One().Neg(), y: NewElement(2)}
}

// NewPoint constructs an affine point, verifying the curve equation.
func NewPoint(x, y *Element) (*Point, error) {
	lhs := y.Square()
	rhs := x.Square().Mul(x).Add(curveB)
	if !lhs.Equal(rhs) {
		return nil, ErrNotOnCurve
	}
	return &Point{x: x.Clone(), y: y.Clone()}, nil
}

// PointFromX lifts an x-coordinate to a curve point, choosing the even
// root. Returns false when x^3 + 5 is a non-residue.
func PointFromX(x *Element) (*Point, bool) {
	rhs := x.Square().Mul(x).Add(curveB)
	y, ok := rhs.Sqrt()
	if !ok {
		return nil, false
	}
	if y.v.Bit(0) == 1 {
		y = y.Neg()
	}
	return &Point{x: x.Clone(), y: y}, true
}

// IsIdentity reports whether p is the point at infinity.
func (p *Point) IsIdentity() bool {
	return p.infinity
}

// X returns the affine x-coordinate.
func (p *Point) X() *Element {
	return p.x.Clone()
}

// Bytes returns the 32-byte compressed encoding: the x-coordinate with
// the sign of y folded into the top bit of the final byte. The identity
// encodes to all zeroes.
func (p *Point) Bytes() [FieldSize]byte {
	var out [FieldSize]byte
	if p.infinity {
		return out
	}
	out = p.x.Bytes()
	if p.y.v.Bit(0) == 1 {
		out[FieldSize-1] |= 0x80
	}
	return out
}

// PointFromBytes decodes a compressed point encoding.
func PointFromBytes(b []byte) (*Point, error) {
	if len(b) != FieldSize {
		return nil, ErrInvalidLength
	}
	var buf [FieldSize]byte
	copy(buf[:], b)
	sign := buf[FieldSize-1]&0x80 != 0
	buf[FieldSize-1] &^= 0x80

	allZero := true
	for _, c := range buf {
		if c != 0 {
			allZero = false
			break
		}
	}
	if allZero && !sign {
		return Identity(), nil
	}

	x, err := FromBytes(buf[:])
	if err != nil {
		return nil, err
	}
	pt, ok := PointFromX(x)
	if !ok {
		return nil, ErrNotOnCurve
	}
	if sign != (pt.y.v.Bit(0) == 1) {
		pt.y = pt.y.Neg()
	}
	return pt, nil
}

// Add returns p + q using the affine group law.
func (p *Point) Add(q *Point) *Point {
	if p.infinity {
		return q.clone()
	}
	if q.infinity {
		return p.clone()
	}
	if p.x.Equal(q.x) {
		if p.y.Equal(q.y.Neg()) {
			return Identity()
		}
		return p.Double()
	}

	// lambda = (y2 - y1) / (x2 - x1)
	den, _ := q.x.Sub(p.x).Invert()
	lambda := q.y.Sub(p.y).Mul(den)

	x3 := lambda.Square().Sub(p.x).Sub(q.x)
	y3 := lambda.Mul(p.x.Sub(x3)).Sub(p.y)
	return &Point{x: x3, y: y3}
}

// Double returns 2p.
func (p *Point) Double() *Point {
	if p.infinity || p.y.IsZero() {
		return Identity()
	}

	// lambda = 3x^2 / 2y (a = 0 for pallas)
	num := p.x.Square().Mul(NewElement(3))
	den, _ := p.y.Mul(NewElement(2)).Invert()
	lambda := num.Mul(den)

	x3 := lambda.Square().Sub(p.x).Sub(p.x)
	y3 := lambda.Mul(p.x.Sub(x3)).Sub(p.y)
	return &Point{x: x3, y: y3}
}

// ScalarMult returns k*p using a Montgomery ladder. The ladder performs
// the same add/double sequence for every bit, so the operation count
// does not depend on the scalar value.
func (p *Point) ScalarMult(k *Scalar) *Point {
	r0 := Identity()
	r1 := p.clone()

	for i := scalarPrime.BitLen() - 1; i >= 0; i-- {
		if k.v.Bit(i) == 0 {
			r1 = r0.Add(r1)
			r0 = r0.Double()
		} else {
			r0 = r0.Add(r1)
			r1 = r1.Double()
		}
	}
	return r0
}

// ScalarBaseMult returns k*G.
func ScalarBaseMult(k *Scalar) *Point {
	return Generator().ScalarMult(k)
}

// Equal reports whether p and q are the same group element.
func (p *Point) Equal(q *Point) bool {
	if p.infinity || q.infinity {
		return p.infinity == q.infinity
	}
	return p.x.Equal(q.x) && p.y.Equal(q.y)
}

func (p *Point) clone() *Point {
	return &Point{x: p.x.Clone(), y: p.y.Clone(), infinity: p.infinity}
}

// HashToPoint maps arbitrary bytes to a curve point by incrementing a
// counter until the derived x-coordinate lifts to the curve. Used for
// diversifier bases, where uniformity matters more than speed.
func HashToPoint(digest func(data []byte) [64]byte, data []byte) *Point {
	buf := make([]byte, len(data)+1)
	copy(buf, data)
	for ctr := 0; ; ctr++ {
		buf[len(data)] = byte(ctr)
		wide := digest(buf)
		x := FromBytesWide(wide)
		if pt, ok := PointFromX(x); ok {
			return pt
		}
	}
}

// order returns the scalar field modulus. Exposed for tests.
func order() *big.Int {
	return new(big.Int).Set(scalarPrime)
}
