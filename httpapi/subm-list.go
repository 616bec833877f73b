package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/coursegrade/backend/auth"
	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/subm"
)

func (httpserver *HttpServer) listMySubmissions(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		handleJsonSrvcError(httpserver.log, w, errNotLoggedIn())
		return
	}

	subs, err := httpserver.subs.GetSubmissionsForUser(r.Context(), claims.NetID)
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}
	writeJsonSuccessResponse(w, mapSubms(subs))
}

func (httpserver *HttpServer) listMyPhaseSubmissions(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		handleJsonSrvcError(httpserver.log, w, errNotLoggedIn())
		return
	}

	phase, err := grader.ParsePhase(chi.URLParam(r, "phase"))
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}

	subs, err := httpserver.subs.GetSubmissionsForPhase(r.Context(), claims.NetID, phase)
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}
	writeJsonSuccessResponse(w, mapSubms(subs))
}

// getLatestSubmission returns the student's most recent submission
// across all phases.
func (httpserver *HttpServer) getLatestSubmission(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		handleJsonSrvcError(httpserver.log, w, errNotLoggedIn())
		return
	}

	latest, err := httpserver.subs.GetLastSubmissionForUser(r.Context(), claims.NetID)
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}
	if latest == nil {
		handleJsonSrvcError(httpserver.log, w, subm.ErrNoMatchingSubmission())
		return
	}
	writeJsonSuccessResponse(w, mapSubm(*latest))
}

// listActive reports who is waiting and who is being graded right now.
func (httpserver *HttpServer) listActive(w http.ResponseWriter, r *http.Request) {
	inQueue, grading, err := httpserver.queue.Active(r.Context())
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}

	type activeResponse struct {
		InQueue []string `json:"in_queue"`
		Grading []string `json:"grading"`
	}
	writeJsonSuccessResponse(w, activeResponse{InQueue: inQueue, Grading: grading})
}

func (httpserver *HttpServer) listLatestSubmissions(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if !claims.IsAdmin() {
		handleJsonSrvcError(httpserver.log, w, errAdminOnly())
		return
	}

	count := 25
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJsonErrorResponse(w, "count must be a positive integer",
				http.StatusBadRequest, "invalid_count")
			return
		}
		count = n
	}

	subs, err := httpserver.subs.GetAllLatestSubmissions(r.Context(), count)
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}
	writeJsonSuccessResponse(w, mapSubms(subs))
}

func (httpserver *HttpServer) listUserSubmissions(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if !claims.IsAdmin() {
		handleJsonSrvcError(httpserver.log, w, errAdminOnly())
		return
	}

	netID := chi.URLParam(r, "netID")
	subs, err := httpserver.subs.GetSubmissionsForUser(r.Context(), netID)
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}
	writeJsonSuccessResponse(w, mapSubms(subs))
}
