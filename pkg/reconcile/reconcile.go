// Package reconcile checks, batch by batch, that the documents returned by
// the remote service account for the accessions that were requested.
package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/sra-metadata-client/pkg/batch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MaxListed caps how many missing accessions an error message names.
const MaxListed = 10

// ErrReconcile matches every reconciliation failure.
var ErrReconcile = errors.New("reconciliation failed")

var reconcileFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sra_reconcile_failures_total",
	Help: "Total batches rejected by reconciliation by mode",
}, []string{"mode"})

// Mode selects how returned identifiers are compared with requested ones.
type Mode int

const (
	// Strict requires every requested accession to be a returned primary id.
	Strict Mode = iota

	// Relaxed only compares the number of distinct returned ids with the
	// batch length. Used when the requested ids live in another namespace.
	Relaxed
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Relaxed:
		return "relaxed"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Error describes a rejected batch.
type Error struct {
	Mode  Mode
	Batch int
	Total int

	// Missing lists the requested accessions absent from the response (strict).
	Missing []string

	// Lost is the batch length minus the distinct ids found (relaxed). It is
	// negative when the response held more ids than were requested.
	Lost int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Mode == Relaxed {
		if e.Lost < 0 {
			return fmt.Sprintf("received %d more accessions than requested (in batch %d/%d)", -e.Lost, e.Batch, e.Total)
		}
		return fmt.Sprintf("lost %d accessions from NCBI timeout (in batch %d/%d)", e.Lost, e.Batch, e.Total)
	}

	listed := e.Missing
	if len(listed) > MaxListed {
		listed = listed[:MaxListed]
	}
	msg := strings.Join(listed, ", ")
	if extra := len(e.Missing) - len(listed); extra > 0 {
		msg += fmt.Sprintf(", ... (+%d others)", extra)
	}
	return fmt.Sprintf("the following accessions could not be found: %s (in batch %d/%d)", msg, e.Batch, e.Total)
}

// Is matches ErrReconcile.
func (e *Error) Is(target error) bool {
	return target == ErrReconcile
}

// Tracker collects the primary ids seen for one batch. It is reset for each
// batch and never shared between batches.
type Tracker struct {
	mode  Mode
	found map[string]struct{}
}

// NewTracker creates a tracker for the given mode.
func NewTracker(mode Mode) *Tracker {
	return &Tracker{
		mode:  mode,
		found: make(map[string]struct{}),
	}
}

// Mode returns the tracker's mode.
func (t *Tracker) Mode() Mode {
	return t.mode
}

// Observe records a primary id extracted from a returned document.
func (t *Tracker) Observe(id string) {
	t.found[id] = struct{}{}
}

// Found returns the number of distinct ids observed.
func (t *Tracker) Found() int {
	return len(t.found)
}

// Reset clears the observed ids before the next batch.
func (t *Tracker) Reset() {
	t.found = make(map[string]struct{})
}

// Check accepts or rejects the exhausted batch b.
func (t *Tracker) Check(b batch.Batch) error {
	var err *Error

	switch t.mode {
	case Relaxed:
		if lost := b.Len() - len(t.found); lost != 0 {
			err = &Error{Mode: Relaxed, Batch: b.Index, Total: b.Total, Lost: lost}
		}
	default:
		var missing []string
		for _, id := range b.IDs {
			if _, ok := t.found[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			err = &Error{Mode: Strict, Batch: b.Index, Total: b.Total, Missing: missing}
		}
	}

	if err != nil {
		reconcileFailuresTotal.WithLabelValues(t.mode.String()).Inc()
		return err
	}
	return nil
}
