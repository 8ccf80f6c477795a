// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package orchard

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/robustfengbin/zwallet/crypto/pallas"
)

// Ciphertext and plaintext sizes.
const (
	// MemoSize is the fixed memo field size.
	MemoSize = 512

	// notePlaintextSize is version || diversifier || value || rseed ||
	// memo.
	notePlaintextSize = 1 + DiversifierSize + 8 + 32 + MemoSize

	// CompactNoteSize is the compact plaintext: version || diversifier
	// || value || rseed.
	CompactNoteSize = 1 + DiversifierSize + 8 + 32

	// EncCiphertextSize is the sealed full plaintext.
	EncCiphertextSize = notePlaintextSize + 16

	// OutCiphertextSize is the sealed outgoing data (pk_d || esk).
	OutCiphertextSize = 64 + 16

	// noteLeadByte identifies the Orchard plaintext version.
	noteLeadByte = 0x02
)

const (
	personKDF = "Zcash_OrchardKDF"
	personOCK = "Zcash_OrchardOCK"
)

// CompactAction is the slice of an Orchard action that trial decryption
// consumes.
type CompactAction struct {
	Cmx          [32]byte
	Nullifier    [32]byte
	EphemeralKey [32]byte
	Ciphertext   [CompactNoteSize]byte
}

// DecryptedNote is a successful trial decryption: the note, the
// receiver it paid, and the index of the matching prepared key.
type DecryptedNote struct {
	Note      *Note
	Recipient *Address
	KeyIndex  int
}

// sharedSecretKey derives the symmetric note key from the agreed curve
// point and the ephemeral key bytes.
func sharedSecretKey(shared *pallas.Point, epkBytes []byte) [32]byte {
	sp := shared.Bytes()
	data := make([]byte, 0, 64)
	data = append(data, sp[:]...)
	data = append(data, epkBytes...)

	var key [32]byte
	copy(key[:], prfPersonal(personKDF, 32, data))
	return key
}

// EncryptNote seals a note and memo to its recipient, producing the
// full action ciphertext fields. The ephemeral key is derived from the
// note's rseed, so encryption is deterministic per note.
func EncryptNote(note *Note, memo []byte) (encCiphertext [EncCiphertextSize]byte, outCiphertext [OutCiphertextSize]byte, ephemeralKey [32]byte, err error) {
	if len(memo) > MemoSize {
		err = fmt.Errorf("memo exceeds %d bytes", MemoSize)
		return
	}

	gd := DiversifierBase(note.Recipient.Diversifier())
	esk := note.Esk()
	epk := gd.ScalarMult(esk)
	ephemeralKey = epk.Bytes()

	shared := note.Recipient.PkD().ScalarMult(esk)
	key := sharedSecretKey(shared, ephemeralKey[:])

	// Assemble the plaintext: version, diversifier, value, rseed,
	// right-zero-padded memo.
	var plaintext [notePlaintextSize]byte
	plaintext[0] = noteLeadByte
	d := note.Recipient.Diversifier()
	copy(plaintext[1:], d[:])
	v := encodeValue(note.Value)
	copy(plaintext[1+DiversifierSize:], v[:])
	copy(plaintext[1+DiversifierSize+8:], note.Rseed[:])
	copy(plaintext[1+DiversifierSize+8+32:], memo)

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return
	}
	var nonce [chacha20poly1305.NonceSize]byte
	sealed := aead.Seal(nil, nonce[:], plaintext[:], nil)
	copy(encCiphertext[:], sealed)

	// Outgoing ciphertext: pk_d || esk under a key bound to the note's
	// rseed, letting the sender-side viewing path recover the note.
	ock := outgoingCipherKey(note)
	outAead, err := chacha20poly1305.New(ock[:])
	if err != nil {
		return
	}
	var outPlain [64]byte
	pkd := note.Recipient.PkD().Bytes()
	eskBytes := esk.Bytes()
	copy(outPlain[:32], pkd[:])
	copy(outPlain[32:], eskBytes[:])
	outSealed := outAead.Seal(nil, nonce[:], outPlain[:], nil)
	copy(outCiphertext[:], outSealed)

	return
}

func outgoingCipherKey(note *Note) [32]byte {
	rho := note.Rho.Bytes()
	data := make([]byte, 0, 64)
	data = append(data, note.Rseed[:]...)
	data = append(data, rho[:]...)

	var key [32]byte
	copy(key[:], prfPersonal(personOCK, 32, data))
	return key
}

// TryCompactNoteDecryption attempts every prepared key against every
// action. The result slice is parallel to actions; each entry is the
// first matching key's note or nil.
//
// Every candidate key is evaluated for every action. A hit does not
// stop evaluation of the remaining keys: the per-key work is constant
// regardless of which, if any, key matches, so timing does not reveal
// key membership.
func TryCompactNoteDecryption(ivks []*PreparedIncomingViewingKey, actions []*CompactAction) []*DecryptedNote {
	results := make([]*DecryptedNote, len(actions))

	for ai, action := range actions {
		// Structural parses are key-independent and may fail fast.
		epk, err := pallas.PointFromBytes(action.EphemeralKey[:])
		if err != nil {
			continue
		}
		rho, err := pallas.FromBytes(action.Nullifier[:])
		if err != nil {
			continue
		}

		var hit *DecryptedNote
		for ki, pivk := range ivks {
			note, recipient, ok := tryKey(pivk, action, epk, rho)
			if ok && hit == nil {
				hit = &DecryptedNote{Note: note, Recipient: recipient, KeyIndex: ki}
			}
		}
		results[ai] = hit
	}

	return results
}

// tryKey runs one key against one action. All checks complete before
// the verdict is formed; the commitment comparison is constant time.
func tryKey(pivk *PreparedIncomingViewingKey, action *CompactAction, epk *pallas.Point, rho *pallas.Element) (*Note, *Address, bool) {
	shared := epk.ScalarMult(pivk.ivk)
	key := sharedSecretKey(shared, action.EphemeralKey[:])

	// The compact ciphertext is the leading slice of the AEAD stream;
	// decrypt it with the cipher positioned past the MAC block.
	var nonce [chacha20.NonceSize]byte
	stream, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, nil, false
	}
	stream.SetCounter(1)

	var plaintext [CompactNoteSize]byte
	stream.XORKeyStream(plaintext[:], action.Ciphertext[:])

	versionOK := plaintext[0] == noteLeadByte

	var d [DiversifierSize]byte
	copy(d[:], plaintext[1:1+DiversifierSize])
	value := binary.LittleEndian.Uint64(plaintext[1+DiversifierSize : 1+DiversifierSize+8])

	var rseed [32]byte
	copy(rseed[:], plaintext[1+DiversifierSize+8:])

	// Reconstruct the receiver this key would own for the decrypted
	// diversifier and verify the note commitment.
	gd := DiversifierBase(d)
	pkd := gd.ScalarMult(pivk.ivk)
	recipient := &Address{d: d, pkd: pkd}

	note := &Note{Recipient: recipient, Value: value, Rho: rho, Rseed: rseed}
	cmx := note.Commitment().Bytes()

	cmxOK := subtle.ConstantTimeCompare(cmx[:], action.Cmx[:]) == 1
	if versionOK && cmxOK {
		return note, recipient, true
	}
	return nil, nil, false
}

// PrepareIVKs builds the fixed trial-decryption key vector for a set of
// viewing keys: External then Internal scope for each FVK, preserving
// key order.
func PrepareIVKs(keys []*ViewingKey) []*PreparedIncomingViewingKey {
	prepared := make([]*PreparedIncomingViewingKey, 0, len(keys)*2)
	for _, vk := range keys {
		prepared = append(prepared,
			vk.FVK.IncomingViewingKey(External).Prepare(),
			vk.FVK.IncomingViewingKey(Internal).Prepare(),
		)
	}
	return prepared
}
