// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"encoding/hex"
	"fmt"
)

// decodeTxID parses a display-order txid into its 32-byte form.
func decodeTxID(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("chain: bad txid %q: %w", s, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("chain: txid must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func decodeScript(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("chain: bad script hex: %w", err)
	}
	return raw, nil
}
