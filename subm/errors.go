package subm

import (
	"net/http"

	"github.com/coursegrade/backend/srvcerror"
)

const ErrCodeNoMatchingSubmission = "no_matching_submission"

func ErrNoMatchingSubmission() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeNoMatchingSubmission,
		"no submission exists to approve for this student and phase",
	).SetHttpStatusCode(http.StatusNotFound)
}

const ErrCodeInvalidApproval = "invalid_approval"

func ErrInvalidApproval(reason string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidApproval,
		"invalid approval request: "+reason,
	).SetHttpStatusCode(http.StatusBadRequest)
}

const ErrCodeAlreadySubmittedVersion = "already_submitted_version"

func ErrAlreadySubmittedVersion() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeAlreadySubmittedVersion,
		"you have already submitted this version of your code for this phase, make a new commit before submitting again",
	).SetHttpStatusCode(http.StatusBadRequest)
}
