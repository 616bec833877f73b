package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/coursegrade/backend/conf"
	"github.com/coursegrade/backend/coordinator"
	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/httpapi"
	"github.com/coursegrade/backend/lms"
	"github.com/coursegrade/backend/queue"
	"github.com/coursegrade/backend/quality"
	"github.com/coursegrade/backend/store"
	"github.com/coursegrade/backend/subm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := store.NewSqlite(conf.GetSqlitePathFromEnv())
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	policies, err := grader.LoadPhaseConfigs(conf.GetPhaseConfigPathFromEnv())
	if err != nil {
		slog.Error("failed to load phase config", "error", err)
		os.Exit(1)
	}

	var lmsClient lms.Client
	if baseURL, courseID, token := conf.GetLmsConfFromEnv(); baseURL != "" {
		lmsClient = lms.NewCanvas(baseURL, courseID, token)
	} else {
		slog.Warn("LMS_BASE_URL not set, using fake lms")
		lmsClient = lms.NewFake(db, logger)
	}
	gradeBook := lms.NewGradeBook(lmsClient, db)

	var analyzer grader.QualityAnalyzer = quality.Noop{}
	if cmd := conf.GetQualityCommandFromEnv(); cmd != "" {
		analyzer = quality.NewCommand(cmd, nil, 0, logger)
	}

	q := queue.NewService(db)

	ctx := context.Background()
	coord := coordinator.New(ctx, q, conf.GetGradingConcurrencyFromEnv(), logger)

	workDir := conf.GetGradingWorkDirFromEnv()
	factory := func(netID string, phase grader.Phase, repoURL string, admin bool) (coordinator.Task, error) {
		policy, err := policies.Policy(phase)
		if err != nil {
			return nil, err
		}
		return grader.New(grader.Config{
			NetID:           netID,
			Phase:           phase,
			RepoURL:         repoURL,
			AdminSubmission: admin,
			BaseDir:         workDir,
		}, grader.Deps{
			Submissions: db,
			Quality:     analyzer,
			Grades:      gradeBook,
			Policy:      policy,
		}), nil
	}

	submSrvc := subm.NewSrvc(db, gradeBook, policies, logger)

	httpServer := httpapi.NewHttpServer(httpapi.ServerParams{
		Queue:       q,
		Coordinator: coord,
		SubmSrvc:    submSrvc,
		Submissions: db,
		Users:       db,
		Lms:         lmsClient,
		Factory:     factory,
		JwtKey:      conf.GetJwtKeyFromEnv(),
		CorsOrigins: conf.GetCorsOriginsFromEnv(),
	})

	// re-arm whatever was in the queue when the last process died
	if err := coord.Recover(ctx, httpServer.RecoveryFactory()); err != nil {
		slog.Error("startup queue recovery failed", "error", err)
		os.Exit(1)
	}

	address := conf.GetServerAddrFromEnv()
	log.Printf("Starting server on %s", address)
	err = httpServer.Start(address)
	log.Printf("Server stopped with error: %v", err)
}
