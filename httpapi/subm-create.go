package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coursegrade/backend/auth"
	"github.com/coursegrade/backend/coordinator"
	"github.com/coursegrade/backend/gitverify"
	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/srvcerror"
)

func errNotLoggedIn() *srvcerror.Error {
	return srvcerror.New("not_logged_in", "authentication required").
		SetHttpStatusCode(http.StatusUnauthorized)
}

func errAdminOnly() *srvcerror.Error {
	return srvcerror.New("admin_only", "admin role required").
		SetHttpStatusCode(http.StatusForbidden)
}

func errRepoUnreachable() *srvcerror.Error {
	return srvcerror.New("repo_unreachable",
		"your repository could not be reached; check the url and its visibility").
		SetHttpStatusCode(http.StatusUnprocessableEntity)
}

func errPoolSaturated() *srvcerror.Error {
	return srvcerror.New("grading_busy",
		"the grading system is at capacity, try again in a few minutes").
		SetHttpStatusCode(http.StatusServiceUnavailable)
}

// createSubmission admits the authenticated student's repository into
// the grading queue for one phase.
func (httpserver *HttpServer) createSubmission(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		handleJsonSrvcError(httpserver.log, w, errNotLoggedIn())
		return
	}

	type createSubmissionRequest struct {
		Phase string `json:"phase"`
	}

	var request createSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	phase, err := grader.ParsePhase(request.Phase)
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}

	repoURL, err := httpserver.refreshRepoURL(r, claims.NetID)
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}

	remoteHead, err := gitverify.RemoteHeadHash(r.Context(), repoURL)
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, errRepoUnreachable().SetDebug(err))
		return
	}

	if err := httpserver.submSrvc.CheckNewVersion(r.Context(), claims.NetID, phase, remoteHead); err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}

	httpserver.admit(w, r, claims.NetID, phase, repoURL, false)
}

// createAdminSubmission grades an arbitrary repository under the
// admin's own net id. Previous admin runs for the phase are wiped first
// so test gradings do not pile up in the history.
func (httpserver *HttpServer) createAdminSubmission(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if !claims.IsAdmin() {
		handleJsonSrvcError(httpserver.log, w, errAdminOnly())
		return
	}

	type adminSubmissionRequest struct {
		Phase   string `json:"phase"`
		RepoURL string `json:"repo_url"`
	}

	var request adminSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	phase, err := grader.ParsePhase(request.Phase)
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}
	if request.RepoURL == "" {
		writeJsonErrorResponse(w, "repo_url is required", http.StatusBadRequest, "missing_repo_url")
		return
	}

	if err := httpserver.subs.RemoveSubmissionsByNetID(r.Context(), claims.NetID, phase); err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}

	httpserver.admit(w, r, claims.NetID, phase, request.RepoURL, true)
}

// admit is the shared tail of both create paths: reserve the queue
// slot, then hand the task to the pool. The reservation is rolled back
// if the pool refuses it.
func (httpserver *HttpServer) admit(w http.ResponseWriter, r *http.Request, netID string, phase grader.Phase, repoURL string, admin bool) {
	if err := httpserver.queue.Enqueue(r.Context(), netID, phase); err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}

	task, err := httpserver.factory(netID, phase, repoURL, admin)
	if err != nil {
		httpserver.rollbackQueue(r, netID)
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}

	if err := httpserver.coord.AddGrader(task); err != nil {
		httpserver.rollbackQueue(r, netID)
		if errors.Is(err, coordinator.ErrPoolSaturated) {
			handleJsonSrvcError(httpserver.log, w, errPoolSaturated().SetDebug(err))
			return
		}
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}

	type createSubmissionResponse struct {
		NetID string `json:"net_id"`
		Phase string `json:"phase"`
	}
	writeJsonSuccessResponse(w, createSubmissionResponse{NetID: netID, Phase: string(phase)})
}

func (httpserver *HttpServer) rollbackQueue(r *http.Request, netID string) {
	if err := httpserver.queue.Remove(r.Context(), netID); err != nil {
		httpserver.log.Error("failed to roll back queue reservation",
			"net_id", netID, "error", err)
	}
}

// refreshRepoURL re-reads the student's registered repository from the
// LMS so a freshly-corrected url takes effect without staff help. On
// LMS failure the stored url is used.
func (httpserver *HttpServer) refreshRepoURL(r *http.Request, netID string) (string, error) {
	ctx := r.Context()
	user, err := httpserver.users.GetUser(ctx, netID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", srvcerror.New("unknown_user",
			"you are not enrolled in this course's grading system").
			SetHttpStatusCode(http.StatusForbidden)
	}

	fresh, err := httpserver.lmsc.GetGitRepo(ctx, user.LmsUserID)
	if err != nil {
		httpserver.log.Warn("could not refresh repo url from lms",
			"net_id", netID, "error", err)
		fresh = user.RepoURL
	}
	if fresh == "" {
		return "", srvcerror.New("no_repo_url",
			"no repository url is registered for you; submit one in the LMS first").
			SetHttpStatusCode(http.StatusUnprocessableEntity)
	}
	if fresh != user.RepoURL {
		if err := httpserver.users.SetRepoURL(ctx, netID, fresh); err != nil {
			httpserver.log.Error("failed to store refreshed repo url",
				"net_id", netID, "error", err)
		}
	}
	return fresh, nil
}
