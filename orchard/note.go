// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package orchard

import (
	"encoding/binary"
	"fmt"

	"github.com/robustfengbin/zwallet/crypto/pallas"
	"github.com/robustfengbin/zwallet/crypto/poseidon"
)

// Poseidon domain separators for the note PRFs.
const (
	domainNoteCommit uint64 = 2
	domainNullifier  uint64 = 3
)

// RSeed expansion domains.
const (
	rseedDomainEsk byte = 0x04
	rseedDomainRcm byte = 0x05
	rseedDomainPsi byte = 0x09
)

// Note is the plaintext of a shielded output: who it pays, how much,
// and the randomness that makes its commitment and nullifier unique.
type Note struct {
	// Recipient is the diversified address the note pays.
	Recipient *Address

	// Value is the note value in zatoshis.
	Value uint64

	// Rho ties the note to the action that created it; it equals the
	// nullifier revealed by that action.
	Rho *pallas.Element

	// Rseed seeds every per-note secret.
	Rseed [32]byte
}

// rseedExpand derives per-note secrets from (rseed, rho).
func (n *Note) rseedExpand(domain byte) []byte {
	rho := n.Rho.Bytes()
	data := make([]byte, 0, 1+32+32)
	data = append(data, domain)
	data = append(data, n.Rseed[:]...)
	data = append(data, rho[:]...)
	return prfPersonal(personExpand, 64, data)
}

// Esk is the ephemeral secret key the sender uses for this note's
// encryption. Deriving it from rseed keeps the note self-contained.
func (n *Note) Esk() *pallas.Scalar {
	var wide [64]byte
	copy(wide[:], n.rseedExpand(rseedDomainEsk))
	return pallas.ScalarFromBytesWide(wide)
}

// Rcm is the commitment trapdoor.
func (n *Note) Rcm() *pallas.Element {
	var wide [64]byte
	copy(wide[:], n.rseedExpand(rseedDomainRcm))
	return pallas.FromBytesWide(wide)
}

// Psi is the nullifier randomizer.
func (n *Note) Psi() *pallas.Element {
	var wide [64]byte
	copy(wide[:], n.rseedExpand(rseedDomainPsi))
	return pallas.FromBytesWide(wide)
}

// Commitment computes the extracted note commitment cmx. Every note
// field and both trapdoors are bound into a Poseidon tree over the
// Pallas base field.
func (n *Note) Commitment() *pallas.Element {
	gd := DiversifierBase(n.Recipient.Diversifier())

	h1 := poseidon.Hash(domainNoteCommit, gd.X(), n.Recipient.PkD().X())
	h2 := poseidon.Hash(domainNoteCommit, pallas.NewElement(n.Value), n.Rho)
	h3 := poseidon.Hash(domainNoteCommit, n.Psi(), n.Rcm())

	return poseidon.Hash(domainNoteCommit, poseidon.Hash(domainNoteCommit, h1, h2), h3)
}

// Nullifier computes the tag revealed when this note is spent. It needs
// the owning viewing key's nk component; recomputing it from the stored
// (recipient, rho, rseed, value) triple must give back the persisted
// nullifier.
func (n *Note) Nullifier(fvk *FullViewingKey) [32]byte {
	nf := poseidon.Hash(domainNullifier, fvk.Nk().Add(n.Psi()), n.Rho)
	return nf.Bytes()
}

// OrchardNote is the wallet-level record of a discovered note, carrying
// everything persistence and spending need.
type OrchardNote struct {
	// WalletID identifies the owning wallet; AccountIndex the ZIP-32
	// account within it.
	WalletID     int32
	AccountIndex uint32

	// TxHash and BlockHeight locate the output that created the note.
	TxHash      string
	BlockHeight uint64

	// NoteCommitment is the cmx that entered the tree; Position its
	// leaf index.
	NoteCommitment [32]byte
	Position       uint64

	// Nullifier is the spend tag, unique per (wallet, nullifier) while
	// unspent.
	Nullifier [32]byte

	// ValueZatoshis is the note value.
	ValueZatoshis uint64

	// Recipient, Rho, Rseed are the spending triple; they must survive
	// serialization or the note can never be spent.
	Recipient [RawAddressSize]byte
	Rho       [32]byte
	Rseed     [32]byte

	// IsSpent flips when the nullifier is seen on chain; SpentInTx
	// records where.
	IsSpent   bool
	SpentInTx string

	// Memo is the decrypted memo, when one was recovered.
	Memo []byte

	// Witness is the current authentication path, populated at
	// spend-selection time.
	Witness *WitnessData
}

// Note reconstructs the cryptographic note from the stored spending
// triple.
func (n *OrchardNote) Note() (*Note, error) {
	recipient, err := AddressFromBytes(n.Recipient[:])
	if err != nil {
		return nil, err
	}
	rho, err := pallas.FromBytes(n.Rho[:])
	if err != nil {
		return nil, fmt.Errorf("%w: bad rho", ErrInvalidCommitment)
	}
	return &Note{
		Recipient: recipient,
		Value:     n.ValueZatoshis,
		Rho:       rho,
		Rseed:     n.Rseed,
	}, nil
}

// NullifierHex returns the lowercase hex form used as a persistence
// key.
func (n *OrchardNote) NullifierHex() string {
	return fmt.Sprintf("%x", n.Nullifier[:])
}

// encodeValue writes a note value in the little-endian plaintext form.
func encodeValue(v uint64) [8]byte {
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], v)
	return out
}
