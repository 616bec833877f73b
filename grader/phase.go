package grader

import (
	"net/http"

	"github.com/coursegrade/backend/srvcerror"
)

// Phase is one graded milestone in the assignment sequence.
type Phase string

const (
	Phase1 Phase = "Phase1"
	Phase2 Phase = "Phase2"
	Phase3 Phase = "Phase3"
	Phase4 Phase = "Phase4"
	Phase5 Phase = "Phase5"
	Phase6 Phase = "Phase6"
)

var phaseOrder = []Phase{Phase1, Phase2, Phase3, Phase4, Phase5, Phase6}

// ParsePhase maps a client-supplied phase name to a Phase.
func ParsePhase(s string) (Phase, error) {
	for _, p := range phaseOrder {
		if string(p) == s {
			return p, nil
		}
	}
	return "", ErrInvalidPhase(s)
}

// Order returns the position of the phase in the milestone sequence,
// starting at 1.
func (p Phase) Order() int {
	for i, other := range phaseOrder {
		if p == other {
			return i + 1
		}
	}
	return 0
}

const ErrCodeInvalidPhase = "invalid_phase"

func ErrInvalidPhase(got string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidPhase,
		"invalid phase: "+got,
	).SetHttpStatusCode(http.StatusBadRequest)
}
