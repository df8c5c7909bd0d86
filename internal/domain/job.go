// Package domain holds the core data model shared across skillsmith's
// components: jobs, HITL prompts, skill metadata, and operator signatures.
// Ownership is split per spec: the Job Store exclusively creates, mutates,
// and evicts Job records; every other package receives job fields by value.
package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Status is a Job's position in the workflow state machine (spec §4.3):
//
//	pending → running | cancelled (on cancel)
//	running → pending_hitl (on any checkpoint) | cancelled (on cancel)
//	pending_hitl → running (on response) | cancelled (on cancel)
//	running → completed | failed
type Status string

const (
	StatusPending     Status = "pending"
	StatusRunning     Status = "running"
	StatusPendingHITL Status = "pending_hitl"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether s is a sink state with no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// legalTransitions enumerates the state machine's legal edges (spec §4.3).
var legalTransitions = map[Status]map[Status]bool{
	StatusPending:     {StatusRunning: true, StatusCancelled: true},
	StatusRunning:      {StatusPendingHITL: true, StatusCompleted: true, StatusFailed: true, StatusCancelled: true},
	StatusPendingHITL: {StatusRunning: true, StatusCancelled: true},
}

// CanTransition reports whether moving from 'from' to 'to' is legal.
func CanTransition(from, to Status) bool {
	return legalTransitions[from][to]
}

// GenerateID returns a prefixed, globally unique opaque identifier: a
// 128-bit random value hex-encoded, with a human-readable kind prefix so
// logs are easy to scan (e.g. "job_3f9a...", "prompt_1c02...").
func GenerateID(kind string) string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand on a supported platform never fails; if it somehow
		// does, fall back to a degraded but still-unique identifier rather
		// than panicking a caller mid-workflow.
		return fmt.Sprintf("%s_%d", kind, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%s", kind, hex.EncodeToString(buf[:]))
}

// Phase names a workflow stage (glossary: Phase).
type Phase string

const (
	PhaseUnderstanding Phase = "understanding"
	PhaseGeneration    Phase = "generation"
	PhaseValidation    Phase = "validation"
)

// Progress is a job's last-reported position within its current phase.
type Progress struct {
	Phase      Phase   `json:"phase"`
	Percentage float64 `json:"percentage"` // in [0,1]
	Message    string  `json:"message"`
}

// JobError records a terminal failure's kind and message (spec §7).
type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Job is a durable record of one skill-creation request (spec §3).
type Job struct {
	ID     string `json:"id"`
	Status Status `json:"status"`

	TaskDescription string `json:"task_description"`
	UserContext     string `json:"user_context,omitempty"`
	UserID          string `json:"user_id,omitempty"`

	Progress Progress `json:"progress"`

	Understanding    *Understanding    `json:"understanding,omitempty"`
	Draft            *Draft            `json:"draft,omitempty"`
	ValidationReport *ValidationReport `json:"validation_report,omitempty"`
	PendingPrompt    *HITLPrompt       `json:"pending_prompt,omitempty"`

	Refinements int `json:"refinements"` // count of RefineSkill invocations applied so far
	Revisions   int `json:"revisions"`   // count of IncorporateFeedback invocations applied so far

	// PromptSeq is the monotonic HITL prompt counter this job has reached;
	// it survives across a prompt's publish/respond cycle so a freshly
	// published prompt's key is always derived from a seq higher than any
	// previously issued for this job (spec §3: "derived from (job_id,
	// monotonic sequence)").
	PromptSeq int `json:"prompt_seq"`

	FinalScore *float64  `json:"final_score,omitempty"`
	Error      *JobError `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewJob constructs a pending Job with a fresh ID and expiry.
func NewJob(taskDescription, userContext, userID string, ttl time.Duration) *Job {
	now := time.Now()
	return &Job{
		ID:              GenerateID("job"),
		Status:          StatusPending,
		TaskDescription: taskDescription,
		UserContext:     userContext,
		UserID:          userID,
		Progress:        Progress{Phase: PhaseUnderstanding, Percentage: 0},
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}
}

// Transition moves the job to 'to' if legal, updating UpdatedAt. Terminal
// jobs reject every transition except metadata-only updates, which callers
// apply directly without going through Transition.
func (j *Job) Transition(to Status) error {
	if j.Status.Terminal() {
		return fmt.Errorf("job %s: status %s is terminal, cannot transition to %s", j.ID, j.Status, to)
	}
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("job %s: illegal transition %s -> %s", j.ID, j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = time.Now()
	return nil
}
