// Package crypto provides the injected signing capability for seals.
// The engine itself never implements signature schemes; it consumes this
// package (or any other SealSigner/SealVerifier) as an abstract capability.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/trustfabric/replayseal/pkg/canonicalize"
	"github.com/trustfabric/replayseal/pkg/contracts"
)

// SealSigner signs seals.
type SealSigner interface {
	SignSeal(s *contracts.Seal) error
	PublicKey() string
}

// SealVerifier verifies seal signatures.
type SealVerifier interface {
	VerifySeal(s *contracts.Seal) (bool, error)
}

// Ed25519Signer implements SealSigner and SealVerifier.
type Ed25519Signer struct {
	privKey ed25519.PrivateKey
	pubKey  ed25519.PublicKey
	KeyID   string
}

// NewEd25519Signer generates a fresh keypair.
func NewEd25519Signer(keyID string) (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}
	return &Ed25519Signer{privKey: priv, pubKey: pub, KeyID: keyID}, nil
}

// NewEd25519SignerFromKey wraps an existing private key.
func NewEd25519SignerFromKey(priv ed25519.PrivateKey, keyID string) *Ed25519Signer {
	return &Ed25519Signer{
		privKey: priv,
		pubKey:  priv.Public().(ed25519.PublicKey),
		KeyID:   keyID,
	}
}

// PublicKey returns the hex-encoded public key.
func (s *Ed25519Signer) PublicKey() string {
	return hex.EncodeToString(s.pubKey)
}

// SignSeal signs the canonical hash of the seal content (signature fields
// excluded) and stamps the signature onto the seal.
func (s *Ed25519Signer) SignSeal(seal *contracts.Seal) error {
	payload, err := sealPayload(seal)
	if err != nil {
		return err
	}
	sig := ed25519.Sign(s.privKey, payload)
	seal.Signature = hex.EncodeToString(sig)
	seal.SignatureKeyID = s.KeyID
	return nil
}

// VerifySeal checks the seal's signature against this signer's key.
// A seal without a signature is an error, not a silent pass.
func (s *Ed25519Signer) VerifySeal(seal *contracts.Seal) (bool, error) {
	if seal.Signature == "" {
		return false, fmt.Errorf("seal %s has no signature", seal.ExecutionID)
	}
	sig, err := hex.DecodeString(seal.Signature)
	if err != nil {
		return false, fmt.Errorf("invalid signature hex: %w", err)
	}
	payload, err := sealPayload(seal)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(s.pubKey, payload, sig), nil
}

func sealPayload(seal *contracts.Seal) ([]byte, error) {
	digest, err := canonicalize.CanonicalHash(seal.SigningContent())
	if err != nil {
		return nil, fmt.Errorf("canonicalize seal: %w", err)
	}
	return []byte(digest), nil
}
