package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coursegrade/backend/auth"
	"github.com/coursegrade/backend/coordinator"
	"github.com/coursegrade/backend/queue"
	"github.com/coursegrade/backend/store"
)

// rerunQueuedSubmissions re-arms every submission still sitting in the
// queue. Startup runs the same reconciliation; this endpoint lets staff
// trigger it after draining a wedged pool without a restart.
func (httpserver *HttpServer) rerunQueuedSubmissions(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if !claims.IsAdmin() {
		handleJsonSrvcError(httpserver.log, w, errAdminOnly())
		return
	}

	if err := httpserver.coord.Recover(r.Context(), httpserver.RecoveryFactory()); err != nil {
		handleJsonSrvcError(httpserver.log, w, err)
		return
	}

	type rerunResponse struct {
		Status string `json:"rerun"`
	}
	writeJsonSuccessResponse(w, rerunResponse{Status: "ok"})
}

// RecoveryFactory rebuilds a grading task from a bare queue item using
// the repository url on record. Also used for the startup reconcile.
func (httpserver *HttpServer) RecoveryFactory() coordinator.TaskFactory {
	return func(ctx context.Context, item queue.Item) (coordinator.Task, error) {
		user, err := httpserver.users.GetUser(ctx, item.NetID)
		if err != nil {
			return nil, err
		}
		if user == nil || user.RepoURL == "" {
			return nil, fmt.Errorf("no repo url on record for %s", item.NetID)
		}
		// an interrupted admin test-grading stays an admin run
		return httpserver.factory(item.NetID, item.Phase, user.RepoURL, user.Role == store.RoleAdmin)
	}
}
