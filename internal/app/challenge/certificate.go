package challenge

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/bloom-health/bloom/internal/domain"
	"github.com/bloom-health/bloom/internal/infra/metrics"
	"github.com/bloom-health/bloom/internal/infra/sqlite"
)

// IssueCertificate issues the completion certificate for a finished
// enrollment, exactly once. Repeat calls return the stored certificate
// unchanged; the unique (user, challenge) index is the backstop for
// racing issuers.
func (s *Service) IssueCertificate(userID, challengeID string) (domain.Certificate, error) {
	var zero domain.Certificate
	ch, err := s.Get(challengeID)
	if err != nil {
		return zero, err
	}

	release, err := s.acquire(fmt.Sprintf("challenge:%s:%s", challengeID, userID))
	if err != nil {
		return zero, err
	}
	defer release()

	if existing, err := s.db.GetCertificate(userID, challengeID); err != nil {
		return zero, domain.Infra("load certificate", err)
	} else if existing != nil {
		return *existing, nil
	}

	p, err := s.db.GetParticipant(userID, challengeID)
	if err != nil {
		return zero, domain.Infra("load participant", err)
	}
	if p == nil {
		return zero, domain.Permissionf("user %s is not a participant of challenge %s", userID, challengeID)
	}
	if p.Status != domain.ParticipantCompleted {
		return zero, domain.Permissionf("certificate requires a completed challenge, status is %s", p.Status)
	}

	cert := domain.Certificate{
		CertificateID: uuid.NewString(),
		UserID:        userID,
		ChallengeID:   challengeID,
		IssuedAt:      s.clock.Now(),
		Stats: domain.CertificateStats{
			DurationDays:  ch.DurationDays,
			TotalPoints:   p.TotalPoints,
			LongestStreak: p.LongestStreak,
		},
	}
	if s.signer != nil {
		cert.Signature = s.signer.SignCertificate(cert)
	}
	err = s.db.Update(func(tx *sqlite.Tx) error {
		return tx.InsertCertificate(cert)
	})
	if err == sqlite.ErrCertificateExists {
		if existing, err := s.db.GetCertificate(userID, challengeID); err == nil && existing != nil {
			return *existing, nil
		}
	}
	if err != nil {
		return zero, domain.Infra("store certificate", err)
	}

	metrics.CertificatesIssued.WithLabelValues(challengeID).Inc()
	return cert, nil
}

// Certificate returns a previously issued certificate.
func (s *Service) Certificate(userID, challengeID string) (domain.Certificate, error) {
	var zero domain.Certificate
	cert, err := s.db.GetCertificate(userID, challengeID)
	if err != nil {
		return zero, domain.Infra("load certificate", err)
	}
	if cert == nil {
		return zero, domain.NotFoundf("no certificate for user %s in challenge %s", userID, challengeID)
	}
	return *cert, nil
}

// CertificateByID verifies a certificate by its public identifier.
func (s *Service) CertificateByID(certificateID string) (domain.Certificate, error) {
	var zero domain.Certificate
	cert, err := s.db.GetCertificateByID(certificateID)
	if err != nil {
		return zero, domain.Infra("load certificate", err)
	}
	if cert == nil {
		return zero, domain.NotFoundf("certificate %s not found", certificateID)
	}
	return *cert, nil
}
