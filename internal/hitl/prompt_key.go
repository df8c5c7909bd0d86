// Package hitl implements the HITL Coordinator (spec §4.5): publishing a
// checkpoint prompt, bounded polling, and at-most-once response intake that
// resumes the suspended workflow.
package hitl

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// promptClaims binds a prompt key to the (job_id, seq) pair it was issued
// for (spec §3: "unique prompt key: derived from (job_id, monotonic
// sequence)"). Signing it rather than handing back a bare string gives
// submit_response's match check real tamper-evidence, a stronger reading
// of the same invariant.
type promptClaims struct {
	JobID string `json:"job_id"`
	Seq   int    `json:"seq"`
	jwt.RegisteredClaims
}

// PromptSigner mints and verifies prompt keys with an HMAC-signed JWT.
type PromptSigner struct {
	key []byte
}

// NewPromptSigner wraps an HMAC signing key. An empty key still produces
// internally-consistent tokens (useful in tests) but is not safe to deploy
// with untrusted external callers.
func NewPromptSigner(key []byte) *PromptSigner {
	return &PromptSigner{key: key}
}

// Sign mints a prompt key for (jobID, seq).
func (s *PromptSigner) Sign(jobID string, seq int) (string, error) {
	claims := promptClaims{
		JobID: jobID,
		Seq:   seq,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Verify parses and validates key, returning the bound job id and sequence.
func (s *PromptSigner) Verify(key string) (jobID string, seq int, err error) {
	claims := &promptClaims{}
	token, err := jwt.ParseWithClaims(key, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return "", 0, err
	}
	if !token.Valid {
		return "", 0, fmt.Errorf("hitl: prompt key failed validation")
	}
	return claims.JobID, claims.Seq, nil
}
