// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package orchard implements the Orchard shielded pool primitives the
// wallet engine is built on: key derivation, diversified addresses,
// note commitments and nullifiers, trial decryption, the incremental
// commitment tree with witness tracking, and bundle assembly.
package orchard

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/dchest/blake2b"
	"github.com/tyler-smith/go-bip39"

	"github.com/robustfengbin/zwallet/crypto/pallas"
)

// Scope selects which incoming viewing key a payment was addressed to.
type Scope uint8

const (
	// External is the scope of addresses handed out to other parties.
	External Scope = iota

	// Internal is the scope of change and shielding outputs.
	Internal
)

// Key material sizes.
const (
	// SpendingKeySize is the size of a raw spending key.
	SpendingKeySize = 32

	// FullViewingKeySize is ak || nk || rivk.
	FullViewingKeySize = 96
)

// ZIP-32 style derivation constants.
const (
	hardenedOffset = uint32(0x80000000)

	// purposeOrchard is the ZIP-32 purpose field for Orchard.
	purposeOrchard = 32
)

// Personalization strings for the BLAKE2b key-derivation PRFs.
const (
	personMaster = "ZcashOrchardMstr"
	personChild  = "ZcashOrchardChld"
	personExpand = "Zcash_ExpandSeed"
	personAk     = "Zcash_Orchard_ak"
	personNk     = "Zcash_Orchard_nk"
	personRivk   = "ZcashOrchardrivk"
	personIvk    = "Zcash_OrchardIVK"
	personSeed   = "ZcashOrchardSeed"
	personDiv    = "ZcashOrchard_Div"
	personGd     = "Zcash_OrchardG_d"
)

// SpendingKey is the Orchard spending key for one account. Holders can
// authorize spends; zero it as soon as signing completes.
type SpendingKey struct {
	sk           [SpendingKeySize]byte
	AccountIndex uint32
}

// Bytes returns the raw key. Use with caution.
func (k *SpendingKey) Bytes() [SpendingKeySize]byte {
	return k.sk
}

// Zero overwrites the key material. The key is unusable afterwards.
func (k *SpendingKey) Zero() {
	for i := range k.sk {
		k.sk[i] = 0
	}
}

// FullViewingKey derives the viewing key for this spending key.
func (k *SpendingKey) FullViewingKey() *FullViewingKey {
	ak := expandToScalar(k.sk[:], personAk)
	nk := expandToBase(k.sk[:], personNk)
	rivk := expandToScalar(k.sk[:], personRivk)

	return &FullViewingKey{
		ak:   pallas.ScalarBaseMult(ak),
		nk:   nk,
		rivk: rivk,
	}
}

// SpendAuthorizingKey returns the scalar used to authorize spends and
// to randomize per-action verification keys.
func (k *SpendingKey) SpendAuthorizingKey() *pallas.Scalar {
	return expandToScalar(k.sk[:], personAk)
}

// FullViewingKey can detect incoming notes, compute nullifiers, and
// derive payment addresses, but cannot authorize spends.
type FullViewingKey struct {
	ak   *pallas.Point
	nk   *pallas.Element
	rivk *pallas.Scalar
}

// Bytes encodes the key as ak || nk || rivk, three independently
// derived 32-byte components.
func (fvk *FullViewingKey) Bytes() [FullViewingKeySize]byte {
	var out [FullViewingKeySize]byte
	ak := fvk.ak.Bytes()
	nk := fvk.nk.Bytes()
	rivk := fvk.rivk.Bytes()
	copy(out[0:32], ak[:])
	copy(out[32:64], nk[:])
	copy(out[64:96], rivk[:])
	return out
}

// FullViewingKeyFromBytes decodes ak || nk || rivk.
func FullViewingKeyFromBytes(b []byte) (*FullViewingKey, error) {
	if len(b) != FullViewingKeySize {
		return nil, fmt.Errorf("%w: fvk must be %d bytes, got %d",
			ErrKeyDerivation, FullViewingKeySize, len(b))
	}
	ak, err := pallas.PointFromBytes(b[0:32])
	if err != nil {
		return nil, fmt.Errorf("%w: bad ak: %v", ErrKeyDerivation, err)
	}
	nk, err := pallas.FromBytes(b[32:64])
	if err != nil {
		return nil, fmt.Errorf("%w: bad nk: %v", ErrKeyDerivation, err)
	}
	rivk, err := pallas.ScalarFromBytes(b[64:96])
	if err != nil {
		return nil, fmt.Errorf("%w: bad rivk: %v", ErrKeyDerivation, err)
	}
	return &FullViewingKey{ak: ak, nk: nk, rivk: rivk}, nil
}

// IncomingViewingKey derives the per-scope incoming viewing key.
func (fvk *FullViewingKey) IncomingViewingKey(scope Scope) *IncomingViewingKey {
	b := fvk.Bytes()
	data := make([]byte, 0, FullViewingKeySize+1)
	data = append(data, b[:]...)
	data = append(data, byte(scope))
	return &IncomingViewingKey{
		ivk:   expandToScalar(data, personIvk),
		scope: scope,
	}
}

// Nk returns the nullifier-deriving key component.
func (fvk *FullViewingKey) Nk() *pallas.Element {
	return fvk.nk.Clone()
}

// Ak returns the spend-validating key component.
func (fvk *FullViewingKey) Ak() *pallas.Point {
	return fvk.ak
}

// IncomingViewingKey decrypts incoming notes for one scope.
type IncomingViewingKey struct {
	ivk   *pallas.Scalar
	scope Scope
}

// Scope returns the scope the key was derived for.
func (ivk *IncomingViewingKey) Scope() Scope {
	return ivk.scope
}

// PreparedIncomingViewingKey is an incoming viewing key ready for
// batched trial decryption. Preparation is done once per key, not per
// action.
type PreparedIncomingViewingKey struct {
	ivk   *pallas.Scalar
	scope Scope
}

// Prepare readies the key for trial decryption.
func (ivk *IncomingViewingKey) Prepare() *PreparedIncomingViewingKey {
	return &PreparedIncomingViewingKey{ivk: ivk.ivk, scope: ivk.scope}
}

// ViewingKey couples a full viewing key with the wallet metadata the
// scanner needs.
type ViewingKey struct {
	FVK            *FullViewingKey
	AccountIndex   uint32
	BirthdayHeight uint64
	WalletID       int32
}

// Encode renders the key as "ufvk:<account>:<birthday>:<hex>".
func (vk *ViewingKey) Encode() string {
	b := vk.FVK.Bytes()
	return fmt.Sprintf("ufvk:%d:%d:%s", vk.AccountIndex, vk.BirthdayHeight, hex.EncodeToString(b[:]))
}

// DecodeViewingKey parses the Encode format.
func DecodeViewingKey(encoded string) (*ViewingKey, error) {
	parts := strings.Split(encoded, ":")
	if len(parts) != 4 || parts[0] != "ufvk" {
		return nil, fmt.Errorf("%w: invalid viewing key format", ErrKeyDerivation)
	}

	account, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid account index", ErrKeyDerivation)
	}
	birthday, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid birthday height", ErrKeyDerivation)
	}
	raw, err := hex.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid fvk hex", ErrKeyDerivation)
	}
	fvk, err := FullViewingKeyFromBytes(raw)
	if err != nil {
		return nil, err
	}

	return &ViewingKey{
		FVK:            fvk,
		AccountIndex:   uint32(account),
		BirthdayHeight: birthday,
	}, nil
}

// DeriveFromSeed derives the account spending and viewing keys from a
// wallet seed along seed -> master -> purpose(32') -> coin' ->
// account'.
func DeriveFromSeed(seed []byte, coinType, accountIndex uint32, birthdayHeight uint64) (*SpendingKey, *ViewingKey, error) {
	if len(seed) < 32 {
		return nil, nil, fmt.Errorf("%w: seed must be at least 32 bytes", ErrKeyDerivation)
	}

	master := prfPersonal(personMaster, 64, seed)[:32]
	purpose := deriveChild(master, purposeOrchard|hardenedOffset)
	coin := deriveChild(purpose, coinType|hardenedOffset)
	account := deriveChild(coin, accountIndex|hardenedOffset)

	sk := &SpendingKey{AccountIndex: accountIndex}
	copy(sk.sk[:], account)

	vk := &ViewingKey{
		FVK:            sk.FullViewingKey(),
		AccountIndex:   accountIndex,
		BirthdayHeight: birthdayHeight,
	}
	return sk, vk, nil
}

// DeriveFromMnemonic derives keys from a BIP-39 mnemonic sentence.
func DeriveFromMnemonic(mnemonic, passphrase string, coinType, accountIndex uint32, birthdayHeight uint64) (*SpendingKey, *ViewingKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, nil, fmt.Errorf("%w: invalid mnemonic", ErrKeyDerivation)
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	return DeriveFromSeed(seed, coinType, accountIndex, birthdayHeight)
}

// DeriveFromTransparentKey upgrades a transparent wallet by expanding
// its 32-byte private key into an Orchard seed.
func DeriveFromTransparentKey(privKey []byte, coinType, accountIndex uint32, birthdayHeight uint64) (*SpendingKey, *ViewingKey, error) {
	if len(privKey) != 32 {
		return nil, nil, fmt.Errorf("%w: private key must be 32 bytes", ErrKeyDerivation)
	}
	seed := prfPersonal(personSeed, 64, privKey)
	return DeriveFromSeed(seed, coinType, accountIndex, birthdayHeight)
}

// deriveChild derives one hardened child key.
func deriveChild(parent []byte, index uint32) []byte {
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], index)
	data := make([]byte, 0, len(parent)+4)
	data = append(data, parent...)
	data = append(data, idx[:]...)
	return prfPersonal(personChild, 64, data)[:32]
}

// prfPersonal is a personalized BLAKE2b of the given output size.
func prfPersonal(personal string, size uint8, data []byte) []byte {
	var pers [16]byte
	copy(pers[:], personal)
	h, err := blake2b.New(&blake2b.Config{Size: size, Person: pers[:]})
	if err != nil {
		panic("orchard: blake2b config rejected: " + err.Error())
	}
	h.Write(data)
	return h.Sum(nil)
}

// expandToScalar maps key material into the Pallas scalar field via a
// wide reduction.
func expandToScalar(data []byte, personal string) *pallas.Scalar {
	var wide [64]byte
	copy(wide[:], prfPersonal(personal, 64, data))
	return pallas.ScalarFromBytesWide(wide)
}

// expandToBase maps key material into the Pallas base field via a wide
// reduction.
func expandToBase(data []byte, personal string) *pallas.Element {
	var wide [64]byte
	copy(wide[:], prfPersonal(personal, 64, data))
	return pallas.FromBytesWide(wide)
}
