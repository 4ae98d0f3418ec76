package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesvoice/salesvoice/internal/activity"
	"github.com/salesvoice/salesvoice/internal/analytics"
	"github.com/salesvoice/salesvoice/internal/capture"
	"github.com/salesvoice/salesvoice/internal/config"
	"github.com/salesvoice/salesvoice/internal/extraction"
	"github.com/salesvoice/salesvoice/internal/merge"
	"github.com/salesvoice/salesvoice/internal/transcribe"
)

type stubTranscriber struct {
	result *transcribe.Result
}

func (s *stubTranscriber) Transcribe(_ context.Context, clip *capture.AudioClip) *transcribe.Result {
	if clip == nil || len(clip.Data) == 0 {
		return &transcribe.Result{Status: transcribe.StatusError}
	}
	return s.result
}

type stubActivities struct {
	activities map[string]*activity.Activity
	created    *activity.Activity
}

func newStubActivities() *stubActivities {
	return &stubActivities{activities: map[string]*activity.Activity{}}
}

func (s *stubActivities) Create(_ context.Context, a *activity.Activity) (*activity.Activity, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	a.ID = "activity-1"
	s.created = a
	s.activities[a.ID] = a
	return a, nil
}

func (s *stubActivities) Get(_ context.Context, id string) (*activity.Activity, error) {
	a, ok := s.activities[id]
	if !ok {
		return nil, activity.ErrNotFound
	}
	return a, nil
}

func (s *stubActivities) ListPending(_ context.Context, _ int) ([]*activity.Activity, error) {
	var out []*activity.Activity
	for _, a := range s.activities {
		if !a.Classification.HumanConfirmed {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubActivities) Confirm(_ context.Context, id string, confirmed bool, updates map[string]any) (*activity.Activity, error) {
	a, ok := s.activities[id]
	if !ok {
		return nil, activity.ErrNotFound
	}
	if title, ok := updates["title"]; ok {
		str, ok := title.(string)
		if !ok {
			return nil, &activity.ValidationError{Field: "title", Message: "must be a string"}
		}
		a.Title = str
	}
	a.Classification.HumanConfirmed = true
	if confirmed {
		if v, ok := updates["category"].(string); ok {
			a.Category = v
		} else if a.Classification.SuggestedCategory != "" {
			a.Category = a.Classification.SuggestedCategory
		}
	}
	return a, nil
}

func (s *stubActivities) UpdateStatus(_ context.Context, id string, status activity.Status) (*activity.Activity, error) {
	a, ok := s.activities[id]
	if !ok {
		return nil, activity.ErrNotFound
	}
	a.Status = status
	return a, nil
}

type stubAnalytics struct{}

func (stubAnalytics) Dashboard(context.Context, int) (*analytics.Dashboard, error) {
	return &analytics.Dashboard{TotalActivities: 2, ByCategory: map[string]int{"sales": 2}}, nil
}

func (stubAnalytics) Performance(_ context.Context, userID string, _ int) (*analytics.UserPerformance, error) {
	if userID == "" {
		return nil, &activity.ValidationError{Field: "userId", Message: "required"}
	}
	return &analytics.UserPerformance{UserID: userID, Level: analytics.LevelBeginner}, nil
}

const thaiNote = "คุยกับคุณสมชาย บริษัท ABC สนใจสั่งผัก 50000 บาท"

func newTestServer(t *testing.T, mutate func(*Deps, *config.ServerConfig, *config.AuthConfig)) (*Server, *stubActivities) {
	t.Helper()

	activities := newStubActivities()
	deps := Deps{
		Transcriber: &stubTranscriber{result: &transcribe.Result{
			Text:       thaiNote,
			Language:   "th",
			Confidence: 0.93,
			Status:     transcribe.StatusSuccess,
		}},
		Extractor:   extraction.NewHeuristicEngine(nil),
		Activities:  activities,
		Analytics:   stubAnalytics{},
		MergePolicy: merge.DefaultPolicy(),
	}
	cfg := config.ServerConfig{Host: "localhost", Port: 8790, UploadRatePerMinute: 600}
	auth := config.AuthConfig{}
	if mutate != nil {
		mutate(&deps, &cfg, &auth)
	}

	srv, err := NewServer(cfg, auth, deps, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	return srv, activities
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, audio []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("audio", "clip.webm")
	require.NoError(t, err)
	_, err = fw.Write(audio)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("duration_seconds", "4.2"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audio/upload", &body)
	req.Header.Set(echoHeaderContentType, w.FormDataContentType())
	return req
}

const echoHeaderContentType = "Content-Type"

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestBearerAuthRejectsMissingToken(t *testing.T) {
	srv, _ := newTestServer(t, func(_ *Deps, _ *config.ServerConfig, auth *config.AuthConfig) {
		auth.Token = config.Secret("sekret")
	})

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/v1/activities/pending-review", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unauthorized", resp.Error.Code)

	// Health stays open for probes.
	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerAuthAcceptsToken(t *testing.T) {
	srv, _ := newTestServer(t, func(_ *Deps, _ *config.ServerConfig, auth *config.AuthConfig) {
		auth.Token = config.Secret("sekret")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/activities/pending-review", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadReturnsTranscriptAndDraft(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doRequest(srv, uploadRequest(t, []byte("opus-bytes")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ClipID)
	assert.Equal(t, transcribe.StatusSuccess, resp.Transcription.Status)
	require.NotNil(t, resp.Draft)

	// The canonical note clears the auto-apply bar.
	assert.Equal(t, "คุณสมชาย", resp.Draft.CustomerName)
	assert.Equal(t, 50000.0, resp.Draft.EstimatedValue)
	assert.Equal(t, "sales", resp.Draft.Category)
}

func TestUploadFallbackTranscriptStillYieldsDraft(t *testing.T) {
	srv, _ := newTestServer(t, func(deps *Deps, _ *config.ServerConfig, _ *config.AuthConfig) {
		deps.Transcriber = &stubTranscriber{result: &transcribe.Result{
			Text:       "ติดตามลูกค้าเรื่องใบเสนอราคา",
			Language:   "th",
			Confidence: 0.85,
			Status:     transcribe.StatusFallback,
		}}
	})

	rec := doRequest(srv, uploadRequest(t, []byte("opus-bytes")))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, transcribe.StatusFallback, resp.Transcription.Status)
	assert.Equal(t, 0.85, resp.Transcription.Confidence)
	require.NotNil(t, resp.Draft)
}

func TestUploadRequiresAudioFile(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audio/upload", strings.NewReader(""))
	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bad_request", resp.Error.Code)
}

func TestDraftFromText(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	body := `{"text":"` + thaiNote + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/drafts", strings.NewReader(body))
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := doRequest(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var draft merge.Draft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	assert.GreaterOrEqual(t, draft.Confidence, 0.70)
	assert.Equal(t, "คุณสมชาย", draft.CustomerName)
}

func TestDraftRequiresText(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/drafts", strings.NewReader(`{}`))
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateActivity(t *testing.T) {
	srv, activities := newTestServer(t, nil)

	body := `{"userId":"user-1","title":"คุยกับคุณสมชาย","customerName":"คุณสมชาย","category":"sales","classification":{"confidence":0.55}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/activities", strings.NewReader(body))
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := doRequest(srv, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.NotNil(t, activities.created)
	assert.Equal(t, "user-1", activities.created.UserID)
}

func TestCreateActivityValidationError(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/activities", strings.NewReader(`{"title":"no user"}`))
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "userId")
}

func TestGetActivityNotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/v1/activities/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestConfirmClassification(t *testing.T) {
	srv, activities := newTestServer(t, nil)
	activities.activities["a-1"] = &activity.Activity{
		ID: "a-1", UserID: "user-1", Title: "t", Category: "general",
		Classification: activity.Classification{SuggestedCategory: "sales", Confidence: 0.55},
	}

	body := `{"confirmed":true,"updates":{"title":"ติดตามคำสั่งซื้อ"}}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/activities/a-1/confirm-classification", strings.NewReader(body))
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := doRequest(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var a activity.Activity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.True(t, a.Classification.HumanConfirmed)
	assert.Equal(t, "sales", a.Category)
	assert.Equal(t, "ติดตามคำสั่งซื้อ", a.Title)
}

func TestConfirmClassificationMalformedUpdates(t *testing.T) {
	srv, activities := newTestServer(t, nil)
	activities.activities["a-1"] = &activity.Activity{
		ID: "a-1", UserID: "user-1", Title: "t", Category: "general",
		Classification: activity.Classification{SuggestedCategory: "sales", Confidence: 0.55},
	}

	body := `{"confirmed":true,"updates":{"title":42}}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/activities/a-1/confirm-classification", strings.NewReader(body))
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Code)
}

func TestConfirmClassificationRequiresVerdict(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/activities/a-1/confirm-classification", strings.NewReader(`{}`))
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPendingReviewList(t *testing.T) {
	srv, activities := newTestServer(t, nil)
	activities.activities["a-1"] = &activity.Activity{ID: "a-1", UserID: "u", Title: "t"}

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/v1/activities/pending-review", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Activities []*activity.Activity `json:"activities"`
		Count      int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestPendingReviewRejectsBadLimit(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/v1/activities/pending-review?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	srv, activities := newTestServer(t, nil)
	activities.activities["a-1"] = &activity.Activity{ID: "a-1", UserID: "u", Title: "t"}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/activities/a-1/status", strings.NewReader(`{"status":"completed"}`))
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := doRequest(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var a activity.Activity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, activity.StatusCompleted, a.Status)
}

func TestDashboardAndPerformance(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/v1/activities/analytics/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalActivities":2`)

	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/v1/activities/performance/user/user-1?days=30", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Beginner"`)

	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/v1/activities/analytics/dashboard?months=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	// Generate one request so counters exist.
	doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "salesvoice_http_requests_total")
}
