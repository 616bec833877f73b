package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Canvas talks to a Canvas-style REST API.
type Canvas struct {
	baseURL  string
	courseID int
	token    string
	httpc    *http.Client
}

func NewCanvas(baseURL string, courseID int, token string) *Canvas {
	return &Canvas{
		baseURL:  baseURL,
		courseID: courseID,
		token:    token,
		httpc:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Canvas) GetGitRepo(ctx context.Context, lmsUserID int) (string, error) {
	// the repo url lives in the student's submission to the
	// github-repository assignment; the course stores that assignment
	// id in its settings, exposed here via the custom gradebook column
	var body struct {
		URL string `json:"url"`
	}
	path := fmt.Sprintf("/api/v1/courses/%d/custom_gradebook_columns/repo/data/%d", c.courseID, lmsUserID)
	if err := c.get(ctx, path, &body); err != nil {
		return "", fmt.Errorf("get git repo for user %d: %w", lmsUserID, err)
	}
	if body.URL == "" {
		return "", fmt.Errorf("user %d has no repo url registered", lmsUserID)
	}
	return body.URL, nil
}

func (c *Canvas) SubmitGrade(ctx context.Context, lmsUserID int, assignmentNum int, score float64, comment string) error {
	path := fmt.Sprintf("/api/v1/courses/%d/assignments/%d/submissions/%d", c.courseID, assignmentNum, lmsUserID)
	form := url.Values{}
	form.Set("submission[posted_grade]", strconv.FormatFloat(score, 'f', 2, 64))
	if comment != "" {
		form.Set("comment[text_comment]", comment)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.baseURL+path+"?"+form.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("submit grade: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("submit grade: lms returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}

func (c *Canvas) GetAssignmentDueDate(ctx context.Context, lmsUserID int, assignmentNum int) (time.Time, error) {
	var body struct {
		DueAt *time.Time `json:"due_at"`
	}
	path := fmt.Sprintf("/api/v1/courses/%d/assignments/%d/overrides/student/%d", c.courseID, assignmentNum, lmsUserID)
	if err := c.get(ctx, path, &body); err != nil {
		return time.Time{}, fmt.Errorf("get due date: %w", err)
	}
	if body.DueAt == nil {
		return time.Time{}, fmt.Errorf("assignment %d has no due date", assignmentNum)
	}
	return *body.DueAt, nil
}

func (c *Canvas) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("lms returned %d: %s", resp.StatusCode, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
