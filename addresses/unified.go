// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addresses

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/robustfengbin/zwallet/chaincfg"
	"github.com/robustfengbin/zwallet/txscript"
)

// Receiver typecodes defined by ZIP-316.
const (
	TypecodeP2PKH   byte = 0x00
	TypecodeP2SH    byte = 0x01
	TypecodeSapling byte = 0x02
	TypecodeOrchard byte = 0x03
)

// Receiver payload sizes.
const (
	// OrchardReceiverSize is the raw Orchard address size.
	OrchardReceiverSize = 43

	// SaplingReceiverSize is the raw Sapling address size.
	SaplingReceiverSize = 43
)

var (
	// ErrNoKnownReceivers is returned when a unified address decodes
	// but contains no receiver this wallet recognizes.
	ErrNoKnownReceivers = errors.New("unified address has no recognized receivers")

	// ErrNotBech32m is returned when a unified address carries a plain
	// bech32 checksum.
	ErrNotBech32m = errors.New("unified address must use bech32m")

	// ErrDuplicateReceiver is returned when the same typecode appears
	// twice.
	ErrDuplicateReceiver = errors.New("duplicate receiver typecode")
)

// UnifiedAddress is a parsed ZIP-316 unified address. Receivers with
// unknown typecodes are kept in Unknown after decoding; Encode emits
// only the known receivers, so re-encoding drops them.
type UnifiedAddress struct {
	// Orchard is the 43-byte raw Orchard receiver, if present.
	Orchard []byte

	// Sapling is the 43-byte raw Sapling receiver, if present.
	Sapling []byte

	// P2PKH and P2SH are 20-byte transparent receivers, if present.
	P2PKH []byte
	P2SH  []byte

	// Unknown holds receivers with unrecognized typecodes, in their
	// original order.
	Unknown []UnknownReceiver

	params *chaincfg.Params
}

// UnknownReceiver is a receiver this wallet does not understand but
// must tolerate.
type UnknownReceiver struct {
	Typecode byte
	Data     []byte
}

// NewUnifiedAddress returns an empty unified address for params.
// Receivers are set through its fields; Encode requires at least one
// known receiver.
func NewUnifiedAddress(params *chaincfg.Params) *UnifiedAddress {
	return &UnifiedAddress{params: params}
}

// HasOrchard reports whether an Orchard receiver is present.
func (u *UnifiedAddress) HasOrchard() bool { return len(u.Orchard) == OrchardReceiverSize }

// HasSapling reports whether a Sapling receiver is present.
func (u *UnifiedAddress) HasSapling() bool { return len(u.Sapling) == SaplingReceiverSize }

// HasTransparent reports whether a transparent receiver is present.
func (u *UnifiedAddress) HasTransparent() bool {
	return len(u.P2PKH) == txscript.Hash160Size || len(u.P2SH) == txscript.Hash160Size
}

// TransparentAddress returns the transparent component as a t-address.
func (u *UnifiedAddress) TransparentAddress() (*TransparentAddress, error) {
	switch {
	case len(u.P2PKH) == txscript.Hash160Size:
		return NewPubKeyHashAddress(u.P2PKH, u.params)
	case len(u.P2SH) == txscript.Hash160Size:
		return NewScriptHashAddress(u.P2SH, u.params)
	}
	return nil, ErrNoKnownReceivers
}

// PkScript returns the transparent locking script when a transparent
// receiver exists.
func (u *UnifiedAddress) PkScript() ([]byte, error) {
	t, err := u.TransparentAddress()
	if err != nil {
		return nil, err
	}
	return t.PkScript()
}

// IsForNetwork reports whether the address was parsed for params.
func (u *UnifiedAddress) IsForNetwork(params *chaincfg.Params) bool {
	return u.params.Name == params.Name
}

// String encodes the receiver list as TLV, applies F4Jumble, and wraps
// the result in Bech32m with the network HRP.
func (u *UnifiedAddress) String() string {
	encoded, err := u.Encode()
	if err != nil {
		return ""
	}
	return encoded
}

// Encode returns the unified address string. Receivers are emitted in
// ascending typecode order as ZIP-316 requires.
func (u *UnifiedAddress) Encode() (string, error) {
	var payload []byte
	appendTLV := func(typecode byte, data []byte) {
		payload = append(payload, typecode)
		payload = append(payload, wireCompactLen(len(data))...)
		payload = append(payload, data...)
	}

	if len(u.P2PKH) == txscript.Hash160Size {
		appendTLV(TypecodeP2PKH, u.P2PKH)
	}
	if len(u.P2SH) == txscript.Hash160Size {
		appendTLV(TypecodeP2SH, u.P2SH)
	}
	if u.HasSapling() {
		appendTLV(TypecodeSapling, u.Sapling)
	}
	if u.HasOrchard() {
		appendTLV(TypecodeOrchard, u.Orchard)
	}
	if len(payload) == 0 {
		return "", ErrNoKnownReceivers
	}

	// Pad with the HRP and zeroes to 16 bytes so the HRP is bound into
	// the jumble. A payload holding a single transparent receiver is
	// still below the F4Jumble minimum and fails with its length error.
	padding := make([]byte, 16)
	copy(padding, u.params.UnifiedHRP)
	payload = append(payload, padding...)

	jumbled, err := F4Jumble(payload)
	if err != nil {
		return "", err
	}

	converted, err := bech32.ConvertBits(jumbled, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.EncodeM(u.params.UnifiedHRP, converted)
}

// DecodeUnified parses a unified address: Bech32m decode, F4Jumble
// invert, TLV scan. Unknown typecodes are retained; an address with no
// recognized receiver is invalid.
func DecodeUnified(encoded string, params *chaincfg.Params) (*UnifiedAddress, error) {
	// Unified addresses routinely exceed the 90-character limit that
	// bech32.DecodeGeneric enforces (a BIP-173 restriction that does not
	// apply to ZIP-316), so decode without the length cap and confirm
	// the bech32m checksum by re-encoding and comparing.
	hrp, data, err := bech32.DecodeNoLimit(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	reencoded, err := bech32.EncodeM(hrp, data)
	if err != nil || !strings.EqualFold(reencoded, encoded) {
		return nil, ErrNotBech32m
	}
	if hrp != params.UnifiedHRP {
		return nil, fmt.Errorf("%w: hrp %q", ErrInvalidAddress, hrp)
	}

	jumbled, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	payload, err := F4JumbleInverse(jumbled)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	// Verify and strip the 16-byte HRP padding.
	if len(payload) < 16 {
		return nil, ErrInvalidAddress
	}
	padding := payload[len(payload)-16:]
	expected := make([]byte, 16)
	copy(expected, params.UnifiedHRP)
	for i := range padding {
		if padding[i] != expected[i] {
			return nil, fmt.Errorf("%w: bad padding", ErrInvalidAddress)
		}
	}
	payload = payload[:len(payload)-16]

	ua := &UnifiedAddress{params: params}
	seen := make(map[byte]bool)
	for pos := 0; pos < len(payload); {
		if pos+2 > len(payload) {
			return nil, fmt.Errorf("%w: truncated receiver", ErrInvalidAddress)
		}
		typecode := payload[pos]
		length := int(payload[pos+1])
		pos += 2
		if pos+length > len(payload) {
			return nil, fmt.Errorf("%w: receiver overruns payload", ErrInvalidAddress)
		}
		data := append([]byte(nil), payload[pos:pos+length]...)
		pos += length

		if seen[typecode] {
			return nil, ErrDuplicateReceiver
		}
		seen[typecode] = true

		switch typecode {
		case TypecodeP2PKH:
			if length != txscript.Hash160Size {
				return nil, fmt.Errorf("%w: p2pkh receiver length %d", ErrInvalidAddress, length)
			}
			ua.P2PKH = data
		case TypecodeP2SH:
			if length != txscript.Hash160Size {
				return nil, fmt.Errorf("%w: p2sh receiver length %d", ErrInvalidAddress, length)
			}
			ua.P2SH = data
		case TypecodeSapling:
			if length != SaplingReceiverSize {
				return nil, fmt.Errorf("%w: sapling receiver length %d", ErrInvalidAddress, length)
			}
			ua.Sapling = data
		case TypecodeOrchard:
			if length != OrchardReceiverSize {
				return nil, fmt.Errorf("%w: orchard receiver length %d", ErrInvalidAddress, length)
			}
			ua.Orchard = data
		default:
			// Unknown receivers are skipped, not fatal.
			ua.Unknown = append(ua.Unknown, UnknownReceiver{Typecode: typecode, Data: data})
		}
	}

	if !ua.HasOrchard() && !ua.HasSapling() && !ua.HasTransparent() {
		return nil, ErrNoKnownReceivers
	}
	return ua, nil
}

// wireCompactLen encodes a receiver length. Receiver payloads are far
// below 0xfd, so the single-byte form always applies.
func wireCompactLen(n int) []byte {
	return []byte{byte(n)}
}
