// Package security provides the daemon's Ed25519 issuer identity.
// Completion certificates are signed at issuance so third parties can
// verify them offline against the issuer's public key.
package security

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bloom-health/bloom/internal/domain"
)

// Keypair holds the issuer's Ed25519 identity.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeypair creates a new Ed25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 keypair: %w", err)
	}
	return &Keypair{Public: pub, Private: priv}, nil
}

// LoadOrCreateKeypair loads the issuer keypair from disk, or generates
// one on first run. Keys are stored in dataDir/keys/.
func LoadOrCreateKeypair(dataDir string) (*Keypair, error) {
	keyDir := filepath.Join(dataDir, "keys")
	pubPath := filepath.Join(keyDir, "issuer.pub")
	privPath := filepath.Join(keyDir, "issuer.key")

	pubBytes, pubErr := os.ReadFile(pubPath)
	privBytes, privErr := os.ReadFile(privPath)

	if pubErr == nil && privErr == nil {
		pub, err := hex.DecodeString(string(pubBytes))
		if err != nil {
			return nil, fmt.Errorf("decode public key: %w", err)
		}
		priv, err := hex.DecodeString(string(privBytes))
		if err != nil {
			return nil, fmt.Errorf("decode private key: %w", err)
		}
		return &Keypair{
			Public:  ed25519.PublicKey(pub),
			Private: ed25519.PrivateKey(priv),
		}, nil
	}

	kp, err := GenerateKeypair()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(keyDir, 0700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(hex.EncodeToString(kp.Public)), 0644); err != nil {
		return nil, fmt.Errorf("write public key: %w", err)
	}
	if err := os.WriteFile(privPath, []byte(hex.EncodeToString(kp.Private)), 0600); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}

	return kp, nil
}

// PublicKeyHex returns the issuer public key as a hex string.
func (kp *Keypair) PublicKeyHex() string {
	return hex.EncodeToString(kp.Public)
}

// SignCertificate returns the hex Ed25519 signature over the
// certificate payload. The Signature field itself is excluded.
func (kp *Keypair) SignCertificate(c domain.Certificate) string {
	return hex.EncodeToString(ed25519.Sign(kp.Private, certificatePayload(c)))
}

// VerifyCertificate checks a certificate's signature against an issuer
// public key given as hex.
func VerifyCertificate(c domain.Certificate, publicKeyHex string) bool {
	pub, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(c.Signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), certificatePayload(c), sig)
}

// certificatePayload is the canonical byte form that gets signed.
// Field order and encoding are frozen; changing them invalidates every
// previously issued signature.
func certificatePayload(c domain.Certificate) []byte {
	payload := fmt.Sprintf("bloom-cert-v1|%s|%s|%s|%d|%d|%d|%d",
		c.CertificateID, c.UserID, c.ChallengeID, c.IssuedAt.Unix(),
		c.Stats.DurationDays, c.Stats.TotalPoints, c.Stats.LongestStreak)
	return []byte(payload)
}
