// Package conf reads the server's configuration from the environment.
// Values with no safe default panic at startup so misconfiguration
// surfaces immediately rather than mid-grading.
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func GetServerAddrFromEnv() string {
	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return addr
}

func GetJwtKeyFromEnv() []byte {
	key := os.Getenv("JWT_KEY")
	if key == "" {
		panic("JWT_KEY environment variable is not set")
	}
	return []byte(key)
}

func GetSqlitePathFromEnv() string {
	path := os.Getenv("SQLITE_PATH")
	if path == "" {
		path = "grading.db"
	}
	return path
}

func GetPhaseConfigPathFromEnv() string {
	path := os.Getenv("PHASE_CONFIG_PATH")
	if path == "" {
		path = "phases.toml"
	}
	return path
}

func GetGradingWorkDirFromEnv() string {
	dir := os.Getenv("GRADING_WORK_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return dir
}

func GetGradingConcurrencyFromEnv() int {
	raw := os.Getenv("GRADING_CONCURRENCY")
	if raw == "" {
		return 4
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		panic(fmt.Sprintf("invalid GRADING_CONCURRENCY %q", raw))
	}
	return n
}

// GetLmsConfFromEnv returns the LMS endpoint settings. An empty base
// url means "use the fake LMS", which is the local-development default.
func GetLmsConfFromEnv() (baseURL string, courseID int, token string) {
	baseURL = os.Getenv("LMS_BASE_URL")
	if baseURL == "" {
		return "", 0, ""
	}
	rawCourse := os.Getenv("LMS_COURSE_ID")
	courseID, err := strconv.Atoi(rawCourse)
	if err != nil {
		panic(fmt.Sprintf("invalid LMS_COURSE_ID %q", rawCourse))
	}
	token = os.Getenv("LMS_API_TOKEN")
	if token == "" {
		panic("LMS_API_TOKEN environment variable is not set")
	}
	return baseURL, courseID, token
}

// GetQualityCommandFromEnv returns the external analyzer binary, or ""
// when quality analysis is disabled.
func GetQualityCommandFromEnv() string {
	return os.Getenv("QUALITY_COMMAND")
}

func GetCorsOriginsFromEnv() []string {
	origins := os.Getenv("CORS_ORIGINS")
	if origins == "" {
		return []string{"http://localhost:3000"}
	}
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
