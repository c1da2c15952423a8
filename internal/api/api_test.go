package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	svix "github.com/svix/svix-webhooks/go"
	"gorm.io/gorm"

	"careerDesk/internal/config"
	"careerDesk/internal/database"
	"careerDesk/internal/database/dbtest"
	"careerDesk/internal/genai"
	"careerDesk/internal/identity"
	"careerDesk/internal/photo"
	"careerDesk/internal/resume"
	"careerDesk/internal/tracker"
)

var testWebhookSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("careerdesk-test-webhook-secret!!"))

type memBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *memBlob) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	data, _ := io.ReadAll(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return "https://cdn.example.test/" + key, nil
}

func (b *memBlob) Delete(_ context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, strings.TrimPrefix(ref, "https://cdn.example.test/"))
	return nil
}

func (b *memBlob) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example.test/" + key, nil
}

type memQueue struct{}

func (memQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	return &asynq.TaskInfo{ID: "task-42", Type: task.Type()}, nil
}

type testServer struct {
	db     *gorm.DB
	router *gin.Engine
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, mutate func(*Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	dbtest.SeedUser(t, db, "u1")
	dbtest.SeedUser(t, db, "u2")

	users := identity.NewResolver(db, time.Minute)
	photos := photo.NewProcessor(config.PhotoConfig{MaxBytes: 1 << 20, MaxDimension: 512})
	verifier, err := identity.NewVerifier(testWebhookSecret)
	require.NoError(t, err)

	cfg := &config.Config{API: config.APIConfig{
		AllowedOrigins:       []string{"http://localhost:3000"},
		PreviewOriginPattern: "https://careerdesk-*.vercel.app",
		InternalSecret:       "s3cret",
	}}
	deps := Deps{
		API:         cfg.API,
		Resumes:     resume.NewService(db, users, &memBlob{objects: map[string][]byte{}}, photos, memQueue{}, 0),
		Jobs:        tracker.NewService(db, users),
		Webhooks:    verifier,
		Provisioner: identity.NewProvisioner(db),
		Logger:      quietLogger(),
	}
	if mutate != nil {
		mutate(&deps)
	}

	router := NewRouter(cfg, quietLogger())
	RegisterRoutes(router, deps)
	return &testServer{db: db, router: router}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestResumeCreateThenUpdate(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/resume/create", gin.H{
		"identityId":      "u1",
		"resumeData":      gin.H{"title": "First", "skills": "Go, SQL"},
		"workExperiences": []any{},
		"educations":      []any{},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[resume.Resume](t, w)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "First", created.Title)
	assert.Equal(t, []string{"Go", "SQL"}, created.Skills)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))

	w = s.do(t, http.MethodPost, "/api/resume/create", gin.H{
		"identityId":      "u1",
		"resumeId":        created.ID,
		"resumeData":      gin.H{"title": "Updated"},
		"workExperiences": []any{},
		"educations":      []any{},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[resume.Resume](t, w)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Updated", updated.Title)

	var count int64
	require.NoError(t, s.db.Model(&database.Resume{}).Where("id = ?", created.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	list := decode[resume.ListResult](t, s.do(t, http.MethodGet, "/api/resume/user/u1", nil))
	assert.EqualValues(t, 1, list.TotalCount)
	require.Len(t, list.Resumes, 1)
}

func TestResumeCreateRequiresIdentity(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/resume/create", gin.H{"resumeData": gin.H{"title": "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/resume/create", gin.H{"identityId": "ghost", "resumeData": gin.H{"title": "x"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResumeNestedCollectionsAreReplaced(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/resume/create", gin.H{
		"identityId": "u1",
		"resumeData": gin.H{"title": "CV"},
		"educations": []gin.H{{"university": "A"}, {"university": "B"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[resume.Resume](t, w).ID

	w = s.do(t, http.MethodPost, "/api/resume/create", gin.H{
		"identityId": "u1",
		"resumeId":   id,
		"resumeData": gin.H{"title": "CV"},
		"educations": []gin.H{{"university": "C", "startDate": "2020-09-01"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[resume.Resume](t, s.do(t, http.MethodGet, "/api/resume/user/u1/"+id, nil))
	require.Len(t, got.Educations, 1)
	assert.Equal(t, "C", got.Educations[0].University)
	assert.Equal(t, "2020-09-01", got.Educations[0].StartDate.String())
}

func TestResumeOwnershipAndDelete(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/resume/create", gin.H{
		"identityId":      "u1",
		"resumeData":      gin.H{"title": "Mine"},
		"workExperiences": []gin.H{{"position": "Dev", "company": "Acme"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[resume.Resume](t, w).ID

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/resume/user/u2/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/resume/delete/u2/"+id, nil).Code)

	w = s.do(t, http.MethodDelete, "/api/resume/delete/u1/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Mine", decode[resume.Resume](t, w).Title)

	var works int64
	require.NoError(t, s.db.Model(&database.WorkExperience{}).Where("resume_id = ?", id).Count(&works).Error)
	assert.Zero(t, works)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/resume/user/u1/"+id, nil).Code)
}

func TestResumeExportEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/resume/create", gin.H{"identityId": "u1", "resumeData": gin.H{"title": "CV"}})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[resume.Resume](t, w).ID

	w = s.do(t, http.MethodPost, "/api/resume/export/u1/"+id, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "task-42", decode[map[string]string](t, w)["taskId"])

	w = s.do(t, http.MethodGet, "/api/resume/export/u1/"+id, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	require.NoError(t, s.db.Model(&database.Resume{}).Where("id = ?", id).Updates(map[string]any{
		"export_status": database.ExportStatusCompleted,
		"pdf_key":       "resume-exports/u1/cv.pdf",
	}).Error)

	w = s.do(t, http.MethodGet, "/api/resume/export/u1/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "https://signed.example.test/resume-exports/u1/cv.pdf", decode[map[string]any](t, w)["url"])
}

func TestPrintRequiresInternalSecret(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/resume/create", gin.H{"identityId": "u1", "resumeData": gin.H{"title": "Printable", "firstName": "Ada"}})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[resume.Resume](t, w).ID

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/resume/print/"+id, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/resume/print/"+id, nil, "X-Internal-Secret", "nope").Code)

	w = s.do(t, http.MethodGet, "/api/resume/print/"+id, nil, "X-Internal-Secret", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Ada")
}

func TestJobLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/job/u1", gin.H{
		"jobTitle": "Eng", "company": "Acme", "position": "FT",
		"applyDate": "2024-01-01", "lastUpdate": "2024-01-01", "status": "applied",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	job := decode[tracker.Job](t, w)

	jobs := decode[[]tracker.Job](t, s.do(t, http.MethodGet, "/api/job/u1", nil))
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)

	w = s.do(t, http.MethodPut, "/api/job/u1/"+job.ID, gin.H{"status": "interview"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	jobs = decode[[]tracker.Job](t, s.do(t, http.MethodGet, "/api/job/u1", nil))
	require.Len(t, jobs, 1)
	assert.Equal(t, database.JobStatusInterview, jobs[0].Status)

	stats := decode[tracker.Stats](t, s.do(t, http.MethodGet, "/api/job/u1/stats", nil))
	assert.EqualValues(t, 1, stats.Total)

	w = s.do(t, http.MethodDelete, "/api/job/u1/"+job.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Job deleted", decode[map[string]string](t, w)["message"])

	jobs = decode[[]tracker.Job](t, s.do(t, http.MethodGet, "/api/job/u1", nil))
	assert.Empty(t, jobs)
}

func TestJobValidationAndScoping(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/job/u1", gin.H{"jobTitle": "Eng", "company": "Acme", "position": "FT", "status": "ghosted"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/job/u1", gin.H{"company": "Acme", "position": "FT"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/job/u1", gin.H{"jobTitle": "Eng", "company": "Acme", "position": "FT"})
	require.Equal(t, http.StatusCreated, w.Code)
	job := decode[tracker.Job](t, w)
	assert.Equal(t, database.JobStatusApplied, job.Status)

	assert.Empty(t, decode[[]tracker.Job](t, s.do(t, http.MethodGet, "/api/job/u2", nil)))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/job/u2/"+job.ID, gin.H{"company": "Evil"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/job/u2/"+job.ID, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/job/u1?status=unknown", nil).Code)
	assert.Len(t, decode[[]tracker.Job](t, s.do(t, http.MethodGet, "/api/job/u1?q=acme", nil)), 1)
}

func TestClerkWebhook(t *testing.T) {
	s := newTestServer(t, nil)
	payload := []byte(`{"type":"user.created","data":{"id":"user_77","email_addresses":[{"email_address":"grace@example.com"}],"first_name":"Grace","last_name":"Hopper"}}`)

	wh, err := svix.NewWebhook(testWebhookSecret)
	require.NoError(t, err)
	now := time.Now()
	sig, err := wh.Sign("msg_9", now, payload)
	require.NoError(t, err)
	headers := []string{"svix-id", "msg_9", "svix-timestamp", strconv.FormatInt(now.Unix(), 10), "svix-signature", sig}

	w := s.do(t, http.MethodPost, "/api/webhook/clerk-webhook", payload, headers...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/webhook/clerk-webhook", payload, headers...)
	require.Equal(t, http.StatusOK, w.Code)

	var users []database.User
	require.NoError(t, s.db.Where("identity_id = ?", "user_77").Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "grace@example.com", users[0].Email)

	w = s.do(t, http.MethodPost, "/api/webhook/clerk-webhook", []byte(`{"type":"user.created","data":{"id":"forged"}}`), headers...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type stubWriter struct {
	err error
}

func (w stubWriter) Summary(_ context.Context, in genai.SummaryInput) (string, error) {
	return "Summary for " + in.JobTitle, w.err
}

func (w stubWriter) WorkDescription(_ context.Context, in genai.WorkInput) (string, error) {
	return "Worked at " + in.Company, w.err
}

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(m.counts[key])
	return cmd
}

func (m *memCounter) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttls[key] = ttl
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func (m *memCounter) TTL(ctx context.Context, key string) *redis.DurationCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewDurationCmd(ctx, time.Second)
	if ttl, ok := m.ttls[key]; ok {
		cmd.SetVal(ttl)
	} else {
		cmd.SetVal(-1)
	}
	return cmd
}

func TestAIHandlerGeneratesAndRateLimits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registerValidators()
	counter := newMemCounter()
	h := NewAIHandler(stubWriter{}, counter, 2)

	router := gin.New()
	router.POST("/summary", h.Summary)
	router.POST("/work", h.WorkDescription)
	s := &testServer{router: router}

	w := s.do(t, http.MethodPost, "/summary", gin.H{"identityId": "u1", "jobTitle": "Engineer"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Summary for Engineer", decode[map[string]string](t, w)["text"])

	w = s.do(t, http.MethodPost, "/work", gin.H{"identityId": "u1", "position": "Dev", "company": "Acme"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Worked at Acme", decode[map[string]string](t, w)["text"])

	w = s.do(t, http.MethodPost, "/summary", gin.H{"identityId": "u1", "jobTitle": "Engineer"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// 其他用户不受影响
	w = s.do(t, http.MethodPost, "/summary", gin.H{"identityId": "u2", "jobTitle": "Engineer"})
	assert.Equal(t, http.StatusOK, w.Code)

	for key, ttl := range counter.ttls {
		assert.Equal(t, time.Hour, ttl, key)
	}

	w = s.do(t, http.MethodPost, "/work", gin.H{"identityId": "u2", "position": "Dev"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAIHandlerFailuresAreAdvisory(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Writer = stubWriter{err: errors.New("quota exhausted")} })
	w := s.do(t, http.MethodPost, "/api/ai/summary", gin.H{"identityId": "u1", "jobTitle": "Engineer"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "quota exhausted")

	s = newTestServer(t, nil)
	w = s.do(t, http.MethodPost, "/api/ai/summary", gin.H{"identityId": "u1", "jobTitle": "Engineer"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSAllowListAndPreviewPattern(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health", nil, "Origin", "http://localhost:3000")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = s.do(t, http.MethodGet, "/health", nil, "Origin", "https://careerdesk-pr-12.vercel.app")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://careerdesk-pr-12.vercel.app", w.Header().Get("Access-Control-Allow-Origin"))

	w = s.do(t, http.MethodGet, "/health", nil, "Origin", "https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOriginPolicy(t *testing.T) {
	p := newOriginPolicy(config.APIConfig{
		AllowedOrigins:       []string{"https://careerdesk.app"},
		PreviewOriginPattern: "https://careerdesk-*.vercel.app",
	})
	assert.True(t, p.Allow("https://careerdesk.app"))
	assert.True(t, p.Allow("https://careerdesk-git-main.vercel.app"))
	assert.False(t, p.Allow("https://careerdesk-x.vercel.app.evil.com"))
	assert.False(t, p.Allow("https://careerdesk-a/b.vercel.app"))
	assert.False(t, newOriginPolicy(config.APIConfig{}).Allow("https://careerdesk.app"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil).Code)

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "careerdesk_http_requests_total")
}
