// Package validate holds the invariant checks run before every mutation.
// Checks reject with a typed Error; they never coerce values.
package validate

import (
	"fmt"
	"strings"
	"time"

	"renoline/internal/domain"
)

// Kind identifies the violated invariant in a machine-readable way.
type Kind string

const (
	KindDeadlineOutOfRange Kind = "deadline-out-of-range"
	KindLockedForEdit      Kind = "locked-for-edit"
	KindDuplicateKey       Kind = "duplicate-key"
	KindNonPositiveValue   Kind = "non-positive-value"
	KindTitleTooShort      Kind = "title-too-short"
)

type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func newError(kind Kind, field, format string, args ...any) Error {
	return Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

const minTitleLen = 3

// Title rejects human-entered names shorter than three characters.
func Title(field, value string) error {
	if len(strings.TrimSpace(value)) < minTitleLen {
		return newError(KindTitleTooShort, field, "must be at least %d characters", minTitleLen)
	}
	return nil
}

// NonNegative rejects negative monetary or quantity fields.
func NonNegative(field string, v float64) error {
	if v < 0 {
		return newError(KindNonPositiveValue, field, "must not be negative")
	}
	return nil
}

// Positive rejects values that are not strictly greater than zero, for
// fields marked required (approved unit price, approved amount).
func Positive(field string, v float64) error {
	if v <= 0 {
		return newError(KindNonPositiveValue, field, "must be greater than zero")
	}
	return nil
}

// MinQuantity enforces the 0.1 floor on intervention quantities.
func MinQuantity(field string, v float64) error {
	if v < 0.1 {
		return newError(KindNonPositiveValue, field, "must be at least 0.1")
	}
	return nil
}

// Instant rejects timestamps that are not RFC3339.
func Instant(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(time.RFC3339, value); err != nil {
		return newError(KindDeadlineOutOfRange, field, "must be an RFC3339 timestamp")
	}
	return nil
}

// StageDeadline enforces deadline monotonicity: a stage deadline may not
// exceed the project deadline when the project has one. Exactly at the
// boundary is allowed.
func StageDeadline(p domain.Project, deadline string) error {
	if deadline == "" {
		return nil
	}
	d, err := time.Parse(time.RFC3339, deadline)
	if err != nil {
		return newError(KindDeadlineOutOfRange, "deadline", "must be an RFC3339 timestamp")
	}
	if p.Deadline == "" {
		return nil
	}
	bound, err := time.Parse(time.RFC3339, p.Deadline)
	if err != nil {
		// Malformed project deadlines are treated as absent.
		return nil
	}
	if d.After(bound) {
		return newError(KindDeadlineOutOfRange, "deadline", "exceeds project deadline %s", p.Deadline)
	}
	return nil
}

// ProjectDeadline checks that tightening a project deadline does not strand
// stage deadlines beyond it.
func ProjectDeadline(p domain.Project, deadline string) error {
	if deadline == "" {
		return nil
	}
	bound, err := time.Parse(time.RFC3339, deadline)
	if err != nil {
		return newError(KindDeadlineOutOfRange, "deadline", "must be an RFC3339 timestamp")
	}
	for _, iv := range p.Interventions {
		for _, st := range iv.Stages {
			d, err := time.Parse(time.RFC3339, st.Deadline)
			if err != nil {
				continue
			}
			if d.After(bound) {
				return newError(KindDeadlineOutOfRange, "deadline", "stage %q has deadline %s beyond it", st.Title, st.Deadline)
			}
		}
	}
	return nil
}

// InterventionEditable rejects edits while any stage of the intervention is
// completed.
func InterventionEditable(iv domain.Intervention) error {
	for _, st := range iv.Stages {
		if st.Status == domain.StageCompleted {
			return newError(KindLockedForEdit, "intervention", "stage %q is completed; intervention is locked", st.Title)
		}
	}
	return nil
}

// InterventionDeletable rejects deletion unless every stage is still pending.
func InterventionDeletable(iv domain.Intervention) error {
	for _, st := range iv.Stages {
		if st.Status != domain.StagePending {
			return newError(KindLockedForEdit, "intervention", "stage %q is %s; only interventions with all stages pending can be deleted", st.Title, st.Status)
		}
	}
	return nil
}

// StageEditable rejects edits and deletion of a completed stage.
func StageEditable(st domain.Stage) error {
	if st.Status == domain.StageCompleted {
		return newError(KindLockedForEdit, "stage", "stage %q is completed and locked", st.Title)
	}
	return nil
}

// UniqueMasterID rejects a second intervention with the same master id.
func UniqueMasterID(p domain.Project, masterID string) error {
	for _, iv := range p.Interventions {
		if iv.MasterID == masterID {
			return newError(KindDuplicateKey, "master_id", "intervention %s already exists", masterID)
		}
	}
	return nil
}
