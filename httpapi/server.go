package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"

	"github.com/coursegrade/backend/auth"
	"github.com/coursegrade/backend/coordinator"
	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/lms"
	"github.com/coursegrade/backend/queue"
	"github.com/coursegrade/backend/store"
	"github.com/coursegrade/backend/subm"
)

// GraderFactory builds a runnable grading task for one submission. The
// server owns routing and admission; the caller owns grader wiring.
type GraderFactory func(netID string, phase grader.Phase, repoURL string, admin bool) (coordinator.Task, error)

type HttpServer struct {
	queue    *queue.Service
	coord    *coordinator.Coordinator
	submSrvc *subm.Srvc
	subs     store.SubmissionDao
	users    store.UserDao
	lmsc     lms.Client
	factory  GraderFactory
	router   *chi.Mux
	log      *slog.Logger
}

type ServerParams struct {
	Queue       *queue.Service
	Coordinator *coordinator.Coordinator
	SubmSrvc    *subm.Srvc
	Submissions store.SubmissionDao
	Users       store.UserDao
	Lms         lms.Client
	Factory     GraderFactory
	JwtKey      []byte
	CorsOrigins []string
}

func NewHttpServer(p ServerParams) *HttpServer {
	router := chi.NewRouter()

	logger := httplog.NewLogger("coursegrade", httplog.Options{
		LogLevel:         slog.LevelDebug,
		Concise:          true,
		RequestHeaders:   true,
		MessageFieldName: "message",
	})

	router.Use(httplog.RequestLogger(logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   p.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           3000,
	}))

	router.Use(auth.GetJwtAuthMiddleware(p.JwtKey))

	server := &HttpServer{
		queue:    p.Queue,
		coord:    p.Coordinator,
		submSrvc: p.SubmSrvc,
		subs:     p.Submissions,
		users:    p.Users,
		lmsc:     p.Lms,
		factory:  p.Factory,
		router:   router,
		log:      logger.Logger,
	}

	server.routes()

	return server
}

func (httpserver *HttpServer) Start(address string) error {
	return http.ListenAndServe(address, httpserver.router)
}

func (httpserver *HttpServer) Handler() http.Handler {
	return httpserver.router
}

func (httpserver *HttpServer) routes() {
	r := httpserver.router
	r.Post("/submissions", httpserver.createSubmission)
	r.Get("/submissions", httpserver.listMySubmissions)
	r.Get("/submissions/latest", httpserver.getLatestSubmission)
	r.Get("/submissions/active", httpserver.listActive)
	r.Get("/submissions/phase/{phase}", httpserver.listMyPhaseSubmissions)
	r.Get("/subscribe", httpserver.subscribeToUpdates)

	r.Post("/admin/submissions", httpserver.createAdminSubmission)
	r.Post("/admin/submissions/approve", httpserver.approveSubmission)
	r.Post("/admin/submissions/rerun", httpserver.rerunQueuedSubmissions)
	r.Get("/admin/submissions/latest", httpserver.listLatestSubmissions)
	r.Get("/admin/submissions/user/{netID}", httpserver.listUserSubmissions)
}
