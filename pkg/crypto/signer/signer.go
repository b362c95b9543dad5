// Package signer wraps BIP-340 Schnorr signing and verification over
// secp256k1 for event ids, the only cryptographic operation the relay
// itself performs (clients sign their own events; the relay only ever
// verifies).
package signer

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"nestrelay.dev/pkg/encoders/hexutil"
	"nestrelay.dev/pkg/utils/errorf"
)

// I is a minimal signer interface, kept separate from a concrete key type
// so the admin-surface NIP-98 auth and test fixtures can share it.
type I interface {
	Pub() []byte
	Sign(msg []byte) ([]byte, error)
}

// Signer holds a secp256k1 keypair and can sign or verify 32-byte digests.
type Signer struct {
	sec *btcec.PrivateKey
	pub *btcec.PublicKey
	pkb []byte
}

var _ I = (*Signer)(nil)

// Generate creates a new random keypair.
func Generate() (*Signer, error) {
	sec, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return FromSecretBytes(sec.Serialize())
}

// FromSecretBytes builds a Signer from a 32-byte secret key.
func FromSecretBytes(sec []byte) (*Signer, error) {
	if len(sec) != 32 {
		return nil, errorf.E("secret key must be 32 bytes, got %d", len(sec))
	}
	priv, pub := btcec.PrivKeyFromBytes(sec)
	return &Signer{sec: priv, pub: pub, pkb: schnorr.SerializePubKey(pub)}, nil
}

// FromPubBytes builds a verify-only Signer from a 32-byte x-only pubkey.
func FromPubBytes(pub []byte) (*Signer, error) {
	pk, err := schnorr.ParsePubKey(pub)
	if err != nil {
		return nil, err
	}
	return &Signer{pub: pk, pkb: pub}, nil
}

// Pub returns the 32-byte x-only public key.
func (s *Signer) Pub() []byte { return s.pkb }

// PubHex returns the hex-encoded x-only public key, the form every
// event's pubkey field and every filter's authors entry uses.
func (s *Signer) PubHex() string { return hexutil.Encode(s.pkb) }

// Sec returns the 32-byte secret key, or nil if this Signer is verify-only.
func (s *Signer) Sec() []byte {
	if s.sec == nil {
		return nil
	}
	return s.sec.Serialize()
}

// Sign produces a 64-byte Schnorr signature over msg (expected to be a
// 32-byte digest).
func (s *Signer) Sign(msg []byte) ([]byte, error) {
	if s.sec == nil {
		return nil, errorf.E("signer: no secret key loaded")
	}
	sig, err := schnorr.Sign(s.sec, msg)
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// Verify checks a 64-byte Schnorr signature over msg against this Signer's
// public key.
func (s *Signer) Verify(msg, sig []byte) (bool, error) {
	if s.pub == nil {
		return false, errorf.E("signer: no public key loaded")
	}
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false, err
	}
	return parsed.Verify(msg, s.pub), nil
}
