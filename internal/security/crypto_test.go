package security

import (
	"testing"
	"time"

	"github.com/bloom-health/bloom/internal/domain"
)

func testCertificate() domain.Certificate {
	return domain.Certificate{
		CertificateID: "cert-123",
		UserID:        "alice",
		ChallengeID:   "mindful_march",
		IssuedAt:      time.Unix(1750000000, 0),
		Stats: domain.CertificateStats{
			DurationDays:  31,
			TotalPoints:   360,
			LongestStreak: 31,
		},
	}
}

func TestSignAndVerifyCertificate(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	cert := testCertificate()
	cert.Signature = kp.SignCertificate(cert)

	if !VerifyCertificate(cert, kp.PublicKeyHex()) {
		t.Error("valid signature rejected")
	}

	// Any payload change invalidates the signature.
	tampered := cert
	tampered.Stats.TotalPoints = 9999
	if VerifyCertificate(tampered, kp.PublicKeyHex()) {
		t.Error("tampered certificate verified")
	}

	// Wrong issuer key fails.
	other, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	if VerifyCertificate(cert, other.PublicKeyHex()) {
		t.Error("signature verified against wrong key")
	}
}

func TestVerifyCertificate_MalformedInputs(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	cert := testCertificate()
	cert.Signature = "not-hex"
	if VerifyCertificate(cert, kp.PublicKeyHex()) {
		t.Error("malformed signature verified")
	}

	cert.Signature = kp.SignCertificate(cert)
	if VerifyCertificate(cert, "zz") {
		t.Error("malformed public key verified")
	}
}

func TestLoadOrCreateKeypair_Persists(t *testing.T) {
	dir := t.TempDir()

	first, err := LoadOrCreateKeypair(dir)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := LoadOrCreateKeypair(dir)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if first.PublicKeyHex() != second.PublicKeyHex() {
		t.Error("keypair not stable across loads")
	}

	// A signature from the first load verifies with the reloaded key.
	cert := testCertificate()
	cert.Signature = first.SignCertificate(cert)
	if !VerifyCertificate(cert, second.PublicKeyHex()) {
		t.Error("signature does not survive keypair reload")
	}
}
