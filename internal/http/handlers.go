package http

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/salesvoice/salesvoice/internal/activity"
	"github.com/salesvoice/salesvoice/internal/capture"
	"github.com/salesvoice/salesvoice/internal/merge"
	"github.com/salesvoice/salesvoice/internal/transcribe"
)

// UploadResponse is the response body for POST /api/v1/audio/upload. It
// carries the transcript and the draft built from it; nothing is persisted
// until the client submits the draft as an activity.
type UploadResponse struct {
	ClipID        string             `json:"clipId"`
	Transcription *transcribe.Result `json:"transcription"`
	Draft         *merge.Draft       `json:"draft"`
}

// handleUpload accepts a recorded clip, transcribes it, and returns a
// draft activity for review.
func (s *Server) handleUpload(c echo.Context) error {
	ctx := c.Request().Context()

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "audio file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "audio file is unreadable")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "audio file is unreadable")
	}
	if len(data) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "audio file is empty")
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = capture.MimeTypeWebmOpus
	}
	var duration time.Duration
	if v := c.FormValue("duration_seconds"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "duration_seconds must be a non-negative number")
		}
		duration = time.Duration(secs * float64(time.Second))
	}

	clip := &capture.AudioClip{
		ID:         uuid.New().String(),
		Data:       data,
		MimeType:   mimeType,
		Duration:   duration,
		CapturedAt: time.Now().UTC(),
	}
	defer clip.Release()

	result := s.deps.Transcriber.Transcribe(ctx, clip)
	if result.Status == transcribe.StatusError {
		return echo.NewHTTPError(http.StatusBadRequest, "clip could not be transcribed")
	}

	draft, err := s.buildDraft(c, result.Text, result.Hints)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UploadResponse{
		ClipID:        clip.ID,
		Transcription: result,
		Draft:         draft,
	})
}

// DraftRequest is the request body for POST /api/v1/drafts.
type DraftRequest struct {
	Text  string            `json:"text"`
	Hints *transcribe.Hints `json:"hints,omitempty"`
}

// handleDraft builds a draft from already-transcribed text. Clients use
// this for typed notes and for re-running extraction after edits.
func (s *Server) handleDraft(c echo.Context) error {
	var req DraftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	draft, err := s.buildDraft(c, req.Text, req.Hints)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, draft)
}

func (s *Server) buildDraft(c echo.Context, text string, hints *transcribe.Hints) (*merge.Draft, error) {
	seed, err := s.deps.Extractor.Extract(c.Request().Context(), text, hints)
	if err != nil {
		return nil, err
	}
	return merge.BuildDraft(seed, s.deps.MergePolicy), nil
}

// handleCreateActivity persists a reviewed draft as an activity.
func (s *Server) handleCreateActivity(c echo.Context) error {
	var a activity.Activity
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	created, err := s.deps.Activities.Create(c.Request().Context(), &a)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// handleGetActivity returns a single activity.
func (s *Server) handleGetActivity(c echo.Context) error {
	a, err := s.deps.Activities.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// handlePendingReview lists activities awaiting classification review.
func (s *Server) handlePendingReview(c echo.Context) error {
	limit, err := positiveIntParam(c, "limit")
	if err != nil {
		return err
	}

	activities, err := s.deps.Activities.ListPending(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	if activities == nil {
		activities = []*activity.Activity{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"activities": activities,
		"count":      len(activities),
	})
}

// ConfirmRequest is the request body for the classification verdict.
// Updates carries human corrections keyed by the activity's JSON field
// names.
type ConfirmRequest struct {
	Confirmed *bool          `json:"confirmed"`
	Updates   map[string]any `json:"updates,omitempty"`
}

// handleConfirmClassification records a reviewer's verdict.
func (s *Server) handleConfirmClassification(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Confirmed == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "confirmed is required")
	}

	a, err := s.deps.Activities.Confirm(c.Request().Context(), c.Param("id"), *req.Confirmed, req.Updates)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// StatusRequest is the request body for PUT /activities/:id/status.
type StatusRequest struct {
	Status string `json:"status"`
}

// handleUpdateStatus moves an activity through its lifecycle.
func (s *Server) handleUpdateStatus(c echo.Context) error {
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}

	a, err := s.deps.Activities.UpdateStatus(c.Request().Context(), c.Param("id"), activity.Status(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// handleDashboard returns the aggregate analytics view, optionally
// windowed to the last N months.
func (s *Server) handleDashboard(c echo.Context) error {
	months, err := positiveIntParam(c, "months")
	if err != nil {
		return err
	}
	d, err := s.deps.Analytics.Dashboard(c.Request().Context(), months)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// handlePerformance returns a user's performance summary, optionally
// windowed to the last N days.
func (s *Server) handlePerformance(c echo.Context) error {
	days, err := positiveIntParam(c, "days")
	if err != nil {
		return err
	}
	p, err := s.deps.Analytics.Performance(c.Request().Context(), c.Param("userID"), days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// positiveIntParam parses an optional positive integer query parameter.
// Absent means zero.
func positiveIntParam(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a positive integer")
	}
	return n, nil
}
