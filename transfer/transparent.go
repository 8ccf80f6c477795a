// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transfer

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/robustfengbin/zwallet/addresses"
	"github.com/robustfengbin/zwallet/chaincfg"
	"github.com/robustfengbin/zwallet/txscript"
	"github.com/robustfengbin/zwallet/wire"
)

var (
	// ErrNoInputs and ErrNoOutputs guard against signing empty
	// transactions.
	ErrNoInputs  = errors.New("transaction has no inputs")
	ErrNoOutputs = errors.New("transaction has no outputs")

	// ErrBadPrivateKey is returned when key material cannot be parsed.
	ErrBadPrivateKey = errors.New("invalid private key")
)

// TransparentBuilder builds and signs fully transparent Zcash v5
// transactions, used for t-to-t transfers and for funding shielding
// operations.
type TransparentBuilder struct {
	params *chaincfg.Params
	tx     *wire.MsgTx
}

// NewTransparentBuilder starts a v5 transaction whose consensus branch
// ID is selected by the current chain height.
func NewTransparentBuilder(params *chaincfg.Params, currentHeight, expiryHeight uint32) *TransparentBuilder {
	return &TransparentBuilder{
		params: params,
		tx:     wire.NewMsgTx(params.ConsensusBranchID(currentHeight), expiryHeight),
	}
}

// AddInput adds a UTXO to spend. The funding value and script are
// required: the ZIP-244 sighash commits to both.
func (b *TransparentBuilder) AddInput(prevTxID [32]byte, vout uint32, value uint64, scriptPubKey []byte) {
	b.tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: prevTxID, Index: vout},
		Sequence:         0xfffffffe,
		Value:            int64(value),
		PkScript:         scriptPubKey,
	})
}

// AddOutput pays a transparent address.
func (b *TransparentBuilder) AddOutput(address string, value uint64) error {
	addr, err := addresses.DecodeTransparent(address, b.params)
	if err != nil {
		return err
	}
	script, err := addr.PkScript()
	if err != nil {
		return err
	}
	b.tx.AddTxOut(&wire.TxOut{Value: int64(value), PkScript: script})
	return nil
}

// Tx exposes the transaction under construction.
func (b *TransparentBuilder) Tx() *wire.MsgTx {
	return b.tx
}

// Sign signs every input with the given key as P2PKH and returns the
// broadcast-ready hex string plus the display-order txid.
func (b *TransparentBuilder) Sign(privKey *btcec.PrivateKey) (rawHex, txid string, err error) {
	if len(b.tx.TxIn) == 0 {
		return "", "", ErrNoInputs
	}
	if len(b.tx.TxOut) == 0 {
		return "", "", ErrNoOutputs
	}

	pubKey := privKey.PubKey().SerializeCompressed()

	for i, in := range b.tx.TxIn {
		sighash, err := txscript.CalcSignatureHash(b.tx, i, txscript.SigHashAll)
		if err != nil {
			return "", "", fmt.Errorf("input %d: %w", i, err)
		}

		sig := ecdsa.Sign(privKey, sighash[:])
		der := append(sig.Serialize(), byte(txscript.SigHashAll))
		in.SignatureScript = txscript.SignatureScript(der, pubKey)
	}

	raw, err := b.tx.Bytes()
	if err != nil {
		return "", "", err
	}
	return hex.EncodeToString(raw), b.tx.TxHashString(), nil
}

// ParsePrivateKey accepts a 32-byte hex key or a WIF string.
func ParsePrivateKey(s string) (*btcec.PrivateKey, error) {
	if len(s) > 0 && (s[0] == '5' || s[0] == 'K' || s[0] == 'L') {
		wif, err := btcutil.DecodeWIF(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPrivateKey, err)
		}
		return wif.PrivKey, nil
	}

	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPrivateKey, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%w: key must be 32 bytes, got %d", ErrBadPrivateKey, len(raw))
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return priv, nil
}

// PubKeyHash160 returns RIPEMD160(SHA256(pubkey)), the payload of a
// P2PKH address.
func PubKeyHash160(compressedPubKey []byte) []byte {
	return btcutil.Hash160(compressedPubKey)
}

// AddressForKey derives the t-address paying to the given key.
func AddressForKey(privKey *btcec.PrivateKey, params *chaincfg.Params) (*addresses.TransparentAddress, error) {
	hash := PubKeyHash160(privKey.PubKey().SerializeCompressed())
	return addresses.NewPubKeyHashAddress(hash, params)
}
