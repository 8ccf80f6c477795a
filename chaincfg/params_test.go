// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"testing"
)

func TestConsensusBranchID(t *testing.T) {
	tests := []struct {
		name   string
		height uint32
		want   uint32
	}{
		{"orchard activation", 1_687_104, ConsensusBranchNU5},
		{"pre NU6", 2_726_399, ConsensusBranchNU5},
		{"NU6 activation", 2_726_400, ConsensusBranchNU6},
		{"pre NU6.1", 3_146_399, ConsensusBranchNU6},
		{"NU6.1 activation", 3_146_400, ConsensusBranchNU61},
		{"far future", 9_000_000, ConsensusBranchNU61},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MainNetParams.ConsensusBranchID(tt.height)
			if got != tt.want {
				t.Errorf("ConsensusBranchID(%d) = %#08x, want %#08x",
					tt.height, got, tt.want)
			}
		})
	}
}

func TestParamsForName(t *testing.T) {
	p, err := ParamsForName("mainnet")
	if err != nil {
		t.Fatalf("ParamsForName(mainnet): %v", err)
	}
	if p.OrchardActivationHeight != 1_687_104 {
		t.Errorf("unexpected orchard activation height %d", p.OrchardActivationHeight)
	}

	if _, err := ParamsForName("nosuchnet"); err != ErrUnknownNetwork {
		t.Errorf("expected ErrUnknownNetwork, got %v", err)
	}
}
