package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/coursegrade/backend/auth"
	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/subm"
)

func (httpserver *HttpServer) approveSubmission(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if !claims.IsAdmin() {
		handleJsonSrvcError(httpserver.log, w, errAdminOnly())
		return
	}

	type approveRequest struct {
		NetID      string   `json:"net_id"`
		Phase      string   `json:"phase"`
		PenaltyPct int      `json:"penalty_pct"`
		FixedScore *float64 `json:"fixed_score,omitempty"`
	}

	var request approveRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	phase, err := grader.ParsePhase(request.Phase)
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}

	err = httpserver.submSrvc.Approve(r.Context(), subm.ApprovalRequest{
		NetID:         request.NetID,
		Phase:         phase,
		ApproverNetID: claims.NetID,
		PenaltyPct:    request.PenaltyPct,
		FixedScore:    request.FixedScore,
	})
	if err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}

	type approveResponse struct {
		NetID string `json:"net_id"`
		Phase string `json:"phase"`
	}
	writeJsonSuccessResponse(w, approveResponse{NetID: request.NetID, Phase: string(phase)})
}
