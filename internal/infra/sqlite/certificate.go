package sqlite

import (
	"database/sql"
	"strings"
	"time"

	"github.com/bloom-health/bloom/internal/domain"
)

// ─── Certificates ───────────────────────────────────────────────────────────
// Certificates are write-once: no UPDATE or DELETE path exists.

// ErrCertificateExists is returned by InsertCertificate when a certificate
// already exists for the (user, challenge) pair.
var ErrCertificateExists = certExistsError{}

type certExistsError struct{}

func (certExistsError) Error() string { return "certificate already issued" }

// InsertCertificate creates a certificate row. The unique (user, challenge)
// index makes concurrent issuance lose cleanly with ErrCertificateExists.
func (t *Tx) InsertCertificate(c domain.Certificate) error {
	_, err := t.tx.Exec(
		`INSERT INTO certificates (certificate_id, user_id, challenge_id, issued_at, duration_days, total_points, longest_streak, signature)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CertificateID, c.UserID, c.ChallengeID, c.IssuedAt.Unix(),
		c.Stats.DurationDays, c.Stats.TotalPoints, c.Stats.LongestStreak, c.Signature,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrCertificateExists
	}
	return err
}

// GetCertificate returns the certificate for (user, challenge), or nil.
func (d *DB) GetCertificate(userID, challengeID string) (*domain.Certificate, error) {
	row := d.db.QueryRow(
		`SELECT certificate_id, user_id, challenge_id, issued_at, duration_days, total_points, longest_streak, signature
		 FROM certificates WHERE user_id = ? AND challenge_id = ?`,
		userID, challengeID,
	)
	return scanCertificate(row)
}

// GetCertificateByID looks a certificate up by its opaque ID, or nil.
func (d *DB) GetCertificateByID(certificateID string) (*domain.Certificate, error) {
	row := d.db.QueryRow(
		`SELECT certificate_id, user_id, challenge_id, issued_at, duration_days, total_points, longest_streak, signature
		 FROM certificates WHERE certificate_id = ?`,
		certificateID,
	)
	return scanCertificate(row)
}

func scanCertificate(s scanner) (*domain.Certificate, error) {
	var c domain.Certificate
	var issuedAt int64
	err := s.Scan(&c.CertificateID, &c.UserID, &c.ChallengeID, &issuedAt,
		&c.Stats.DurationDays, &c.Stats.TotalPoints, &c.Stats.LongestStreak, &c.Signature)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.IssuedAt = time.Unix(issuedAt, 0)
	return &c, nil
}
