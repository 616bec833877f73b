package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coursegrade/backend/auth"
	"github.com/coursegrade/backend/coordinator"
	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/httpapi"
	"github.com/coursegrade/backend/lms"
	"github.com/coursegrade/backend/queue"
	"github.com/coursegrade/backend/store"
	"github.com/coursegrade/backend/subm"
)

var jwtKey = []byte("test-key")

const serverPhasesToml = `
[phases.Phase3]
assignment_num = 941084
min_unit_tests = 13
commit_gated = true
`

type stubTask struct {
	netID string
	admin bool
	done  chan struct{}
}

func (s *stubTask) NetID() string { return s.netID }

func (s *stubTask) Run(ctx context.Context, progress grader.ProgressFunc) (*grader.Submission, error) {
	defer close(s.done)
	id, _ := uuid.NewV7()
	return &grader.Submission{ID: id, NetID: s.netID, Phase: grader.Phase3}, nil
}

type fixture struct {
	server  *httptest.Server
	httpSrv *httpapi.HttpServer
	mem     *store.InMem
	tasks   []*stubTask
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phases.toml")
	require.NoError(t, os.WriteFile(path, []byte(serverPhasesToml), 0644))
	policies, err := grader.LoadPhaseConfigs(path)
	require.NoError(t, err)

	mem := store.NewInMem()
	q := queue.NewService(mem)
	log := slog.Default()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	coord := coordinator.New(ctx, q, 2, log)

	fakeLms := lms.NewFake(mem, log)
	submSrvc := subm.NewSrvc(mem, lms.NewGradeBook(fakeLms, mem), policies, log)

	f := &fixture{mem: mem}
	factory := func(netID string, phase grader.Phase, repoURL string, admin bool) (coordinator.Task, error) {
		task := &stubTask{netID: netID, admin: admin, done: make(chan struct{})}
		f.tasks = append(f.tasks, task)
		return task, nil
	}

	server := httpapi.NewHttpServer(httpapi.ServerParams{
		Queue:       q,
		Coordinator: coord,
		SubmSrvc:    submSrvc,
		Submissions: mem,
		Users:       mem,
		Lms:         fakeLms,
		Factory:     factory,
		JwtKey:      jwtKey,
		CorsOrigins: []string{"http://localhost:3000"},
	})

	f.httpSrv = server
	f.server = httptest.NewServer(server.Handler())
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func studentToken(t *testing.T, netID string) string {
	t.Helper()
	token, err := auth.GenerateJWT(netID, "", "", store.RoleStudent, jwtKey)
	require.NoError(t, err)
	return token
}

func adminToken(t *testing.T, netID string) string {
	t.Helper()
	token, err := auth.GenerateJWT(netID, "", "", store.RoleAdmin, jwtKey)
	require.NoError(t, err)
	return token
}

func TestCreateSubmissionRequiresAuth(t *testing.T) {
	f := newFixture(t)
	resp := f.request(t, http.MethodPost, "/submissions", "",
		map[string]string{"phase": "Phase3"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminEndpointsRejectStudents(t *testing.T) {
	f := newFixture(t)
	token := studentToken(t, "cosmo")

	for _, path := range []string{
		"/admin/submissions",
		"/admin/submissions/approve",
		"/admin/submissions/rerun",
	} {
		resp := f.request(t, http.MethodPost, path, token, map[string]string{})
		resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	resp := f.request(t, http.MethodGet, "/admin/submissions/latest", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminSubmissionRunsTask(t *testing.T) {
	f := newFixture(t)
	token := adminToken(t, "prof")

	resp := f.request(t, http.MethodPost, "/admin/submissions", token, map[string]string{
		"phase":    "Phase3",
		"repo_url": "https://example.com/demo.git",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, f.tasks, 1)
	select {
	case <-f.tasks[0].done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestCreateSubmissionRejectsUnknownUser(t *testing.T) {
	f := newFixture(t)
	token := studentToken(t, "stranger")

	resp := f.request(t, http.MethodPost, "/submissions", token,
		map[string]string{"phase": "Phase3"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateSubmissionRejectsBadPhase(t *testing.T) {
	f := newFixture(t)
	token := studentToken(t, "cosmo")

	resp := f.request(t, http.MethodPost, "/submissions", token,
		map[string]string{"phase": "Phase9"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListMySubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, _ := uuid.NewV7()
	require.NoError(t, f.mem.InsertSubmission(ctx, grader.Submission{
		ID: id, NetID: "cosmo", Phase: grader.Phase3,
		Timestamp: time.Now().UTC(), Score: 91.5, Passed: true,
	}))

	resp := f.request(t, http.MethodGet, "/submissions", studentToken(t, "cosmo"), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Status string `json:"status"`
		Data   []struct {
			NetID string  `json:"net_id"`
			Score float64 `json:"score"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Equal(t, "success", envelope.Status)
	require.Len(t, envelope.Data, 1)
	require.Equal(t, "cosmo", envelope.Data[0].NetID)
	require.InDelta(t, 91.5, envelope.Data[0].Score, 1e-9)
}

func TestApproveEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.mem.UpsertUser(ctx, store.User{
		NetID: "cosmo", LmsUserID: 7, Role: store.RoleStudent,
	}))
	id, _ := uuid.NewV7()
	require.NoError(t, f.mem.InsertSubmission(ctx, grader.Submission{
		ID: id, NetID: "cosmo", Phase: grader.Phase3, HeadHash: "abc",
		Timestamp: time.Now().UTC(), Score: 80, Passed: true, Withheld: true,
	}))

	resp := f.request(t, http.MethodPost, "/admin/submissions/approve", adminToken(t, "prof"),
		map[string]any{"net_id": "cosmo", "phase": "Phase3", "penalty_pct": 10})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	subs, err := f.mem.GetSubmissionsForPhase(ctx, "cosmo", grader.Phase3)
	require.NoError(t, err)
	require.False(t, subs[0].Withheld)
	require.NotNil(t, subs[0].Verification)
}

func TestListActive(t *testing.T) {
	f := newFixture(t)
	resp := f.request(t, http.MethodGet, "/submissions/active", studentToken(t, "cosmo"), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			InQueue []string `json:"in_queue"`
			Grading []string `json:"grading"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Empty(t, envelope.Data.InQueue)
	require.Empty(t, envelope.Data.Grading)
}

func TestLatestSubmissionEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := studentToken(t, "cosmo")

	resp := f.request(t, http.MethodGet, "/submissions/latest", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	older, _ := uuid.NewV7()
	require.NoError(t, f.mem.InsertSubmission(ctx, grader.Submission{
		ID: older, NetID: "cosmo", Phase: grader.Phase3,
		Timestamp: base, Score: 60,
	}))
	newer, _ := uuid.NewV7()
	require.NoError(t, f.mem.InsertSubmission(ctx, grader.Submission{
		ID: newer, NetID: "cosmo", Phase: grader.Phase4,
		Timestamp: base.Add(time.Hour), Score: 85,
	}))

	resp = f.request(t, http.MethodGet, "/submissions/latest", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			ID    string  `json:"id"`
			Phase string  `json:"phase"`
			Score float64 `json:"score"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Equal(t, newer.String(), envelope.Data.ID)
	require.Equal(t, "Phase4", envelope.Data.Phase)
	require.InDelta(t, 85.0, envelope.Data.Score, 1e-9)
}

func TestRecoveryFactoryKeepsAdminFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.mem.UpsertUser(ctx, store.User{
		NetID: "prof", LmsUserID: 1, RepoURL: "https://example.com/demo.git",
		Role: store.RoleAdmin,
	}))
	require.NoError(t, f.mem.UpsertUser(ctx, store.User{
		NetID: "cosmo", LmsUserID: 2, RepoURL: "https://example.com/cosmo.git",
		Role: store.RoleStudent,
	}))

	factory := f.httpSrv.RecoveryFactory()

	task, err := factory(ctx, queue.Item{NetID: "prof", Phase: grader.Phase3})
	require.NoError(t, err)
	require.True(t, task.(*stubTask).admin)

	task, err = factory(ctx, queue.Item{NetID: "cosmo", Phase: grader.Phase3})
	require.NoError(t, err)
	require.False(t, task.(*stubTask).admin)
}
