package challenge

import (
	"sync"
	"testing"

	"github.com/bloom-health/bloom/internal/domain"
	"github.com/bloom-health/bloom/internal/security"
)

func completeWholeChallenge(t *testing.T, s *Service, clock *testClock, userID string, duration int) {
	t.Helper()
	if _, err := s.Join(userID, "mindful_march", ""); err != nil {
		t.Fatal(err)
	}
	for dayNum := 1; dayNum <= duration; dayNum++ {
		clock.Set(at("2025-03-01 12:00").AddDate(0, 0, dayNum-1))
		if _, err := s.CompleteDay(userID, "mindful_march", dayNum); err != nil {
			t.Fatalf("day %d: %v", dayNum, err)
		}
	}
}

func TestCertificate_RequiresCompletion(t *testing.T) {
	clock := &testClock{now: at("2025-03-01 09:00")}
	s := newTestService(t, clock)
	mustDefine(t, s, mindfulMarch(7))

	// Never joined.
	if _, err := s.IssueCertificate("alice", "mindful_march"); domain.KindOf(err) != domain.KindPermission {
		t.Errorf("not joined err = %v, want permission", err)
	}

	if _, err := s.Join("alice", "mindful_march", ""); err != nil {
		t.Fatal(err)
	}
	// Active but not done.
	if _, err := s.IssueCertificate("alice", "mindful_march"); domain.KindOf(err) != domain.KindPermission {
		t.Errorf("incomplete err = %v, want permission", err)
	}

	// Abandoned never qualifies.
	if _, err := s.Abandon("alice", "mindful_march"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.IssueCertificate("alice", "mindful_march"); domain.KindOf(err) != domain.KindPermission {
		t.Errorf("abandoned err = %v, want permission", err)
	}
}

func TestCertificate_IssuedOnceWithFrozenStats(t *testing.T) {
	clock := &testClock{now: at("2025-03-01 09:00")}
	s := newTestService(t, clock)
	mustDefine(t, s, mindfulMarch(3))
	completeWholeChallenge(t, s, clock, "alice", 3)

	cert, err := s.IssueCertificate("alice", "mindful_march")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if cert.CertificateID == "" {
		t.Error("empty certificate id")
	}
	if cert.Stats.DurationDays != 3 || cert.Stats.TotalPoints != 80 || cert.Stats.LongestStreak != 3 {
		t.Errorf("stats = %+v, want 3 days / 80 points / streak 3", cert.Stats)
	}

	// Second issue returns the same certificate.
	again, err := s.IssueCertificate("alice", "mindful_march")
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if again.CertificateID != cert.CertificateID {
		t.Errorf("reissued id %s, want %s", again.CertificateID, cert.CertificateID)
	}

	// Lookup paths agree.
	byPair, err := s.Certificate("alice", "mindful_march")
	if err != nil {
		t.Fatal(err)
	}
	byID, err := s.CertificateByID(cert.CertificateID)
	if err != nil {
		t.Fatal(err)
	}
	if byPair.CertificateID != cert.CertificateID || byID.UserID != "alice" {
		t.Errorf("lookups disagree: %+v vs %+v", byPair, byID)
	}
}

func TestCertificate_ConcurrentIssueYieldsOne(t *testing.T) {
	clock := &testClock{now: at("2025-03-01 09:00")}
	s := newTestService(t, clock)
	mustDefine(t, s, mindfulMarch(2))
	completeWholeChallenge(t, s, clock, "alice", 2)

	const issuers = 8
	var wg sync.WaitGroup
	certs := make([]domain.Certificate, issuers)
	for i := 0; i < issuers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cert, err := s.IssueCertificate("alice", "mindful_march")
			if err != nil {
				t.Errorf("issuer %d: %v", i, err)
				return
			}
			certs[i] = cert
		}(i)
	}
	wg.Wait()

	for i := 1; i < issuers; i++ {
		if certs[i].CertificateID != certs[0].CertificateID {
			t.Errorf("issuer %d got %s, issuer 0 got %s", i, certs[i].CertificateID, certs[0].CertificateID)
		}
	}
}

func TestCertificate_SignedWhenSignerAttached(t *testing.T) {
	clock := &testClock{now: at("2025-03-01 09:00")}
	s := newTestService(t, clock)
	kp, err := security.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	s.SetSigner(kp)
	mustDefine(t, s, mindfulMarch(2))
	completeWholeChallenge(t, s, clock, "alice", 2)

	cert, err := s.IssueCertificate("alice", "mindful_march")
	if err != nil {
		t.Fatal(err)
	}
	if cert.Signature == "" {
		t.Fatal("certificate unsigned with signer attached")
	}
	if !security.VerifyCertificate(cert, kp.PublicKeyHex()) {
		t.Error("stored signature does not verify")
	}

	// The signature survives the round trip through storage.
	stored, err := s.CertificateByID(cert.CertificateID)
	if err != nil {
		t.Fatal(err)
	}
	if !security.VerifyCertificate(stored, kp.PublicKeyHex()) {
		t.Error("reloaded certificate does not verify")
	}
}

func TestCertificate_NotFoundLookups(t *testing.T) {
	s := newTestService(t, domain.SystemClock())
	mustDefine(t, s, mindfulMarch(7))

	if _, err := s.Certificate("alice", "mindful_march"); domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("pair lookup err = %v, want not found", err)
	}
	if _, err := s.CertificateByID("no-such-cert"); domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("id lookup err = %v, want not found", err)
	}
}
