// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jcodagnone/cercania/spatial"
	"go.uber.org/zap"
)

// Server exposes the orchestrator over a local JSON API.
type Server struct {
	orch     *Orchestrator
	repo     *RunRepository
	logger   *zap.Logger
	newRunID func() string

	mu           sync.Mutex
	currentRunID string
}

// NewServer creates a server. repo may be nil, in which case runs are not
// persisted and the stored runs endpoints answer 503.
func NewServer(orch *Orchestrator, repo *RunRepository, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		orch:     orch,
		repo:     repo,
		logger:   logger,
		newRunID: uuid.NewString,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog)

	r.GET("/api/state", s.getState)
	r.GET("/api/categories", s.listCategories)
	r.POST("/api/runs", s.createRun)
	r.GET("/api/runs", s.listRuns)
	r.GET("/api/runs/current", s.getCurrentRun)
	r.GET("/api/runs/:id", s.getRun)
	r.POST("/api/runs/current/places/:id/candidate", s.setCandidate)
	r.POST("/api/runs/current/details", s.refreshDetails)

	return r
}

// Run serves the API on addr.
func (s *Server) Run(addr string) error {
	s.logger.Info("serving API", zap.String("addr", addr))

	return s.Router().Run(addr)
}

func (s *Server) accessLog(ctx *gin.Context) {
	start := time.Now()

	ctx.Next()

	s.logger.Debug("request",
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.FullPath()),
		zap.Int("status", ctx.Writer.Status()),
		zap.Duration("elapsed", time.Since(start)))
}

// errorStatus maps pipeline errors to HTTP status codes.
func errorStatus(err error) int {
	var runErr *RunError

	switch {
	case errors.Is(err, ErrNoResult), errors.Is(err, ErrUnknownPlace), errors.Is(err, ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRunInProgress), errors.Is(err, ErrCandidateLimit), errors.Is(err, ErrPlaceHasDistanceError):
		return http.StatusConflict
	case errors.As(err, &runErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(ctx *gin.Context, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	}

	body := gin.H{"error": err.Error()}

	var runErr *RunError
	if errors.As(err, &runErr) {
		body["stage"] = runErr.Stage
		if runErr.Category != "" {
			body["category"] = runErr.Category
		}
	}

	ctx.JSON(status, body)
}

func (s *Server) getState(ctx *gin.Context) {
	s.mu.Lock()
	runID := s.currentRunID
	s.mu.Unlock()

	ctx.JSON(http.StatusOK, gin.H{
		"state":      s.orch.State(),
		"has_result": s.orch.Result() != nil,
		"run_id":     runID,
	})
}

func (s *Server) listCategories(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.orch.Categories())
}

// CreateRunRequest is the body of POST /api/runs.
type CreateRunRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

// RunResponse is a run identifier with its result projection.
type RunResponse struct {
	ID     string `json:"id,omitempty"`
	Result View   `json:"result"`
}

func (s *Server) createRun(ctx *gin.Context) {
	var req CreateRunRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	origin := spatial.Point{Lat: *req.Lat, Lng: *req.Lng}
	if err := origin.Validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	// the live result no longer belongs to the previously stored run
	s.mu.Lock()
	s.currentRunID = ""
	s.mu.Unlock()

	result, err := s.orch.Run(ctx.Request.Context(), origin)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	runID := s.newRunID()

	if s.repo != nil {
		if err := s.repo.SaveRun(runID, result); err != nil {
			s.fail(ctx, err)

			return
		}
	}

	s.mu.Lock()
	s.currentRunID = runID
	s.mu.Unlock()

	ctx.JSON(http.StatusCreated, RunResponse{ID: runID, Result: result.View()})
}

func (s *Server) getCurrentRun(ctx *gin.Context) {
	result := s.orch.Result()
	if result == nil {
		s.fail(ctx, ErrNoResult)

		return
	}

	s.mu.Lock()
	runID := s.currentRunID
	s.mu.Unlock()

	ctx.JSON(http.StatusOK, RunResponse{ID: runID, Result: result.View()})
}

func (s *Server) requireRepo(ctx *gin.Context) bool {
	if s.repo == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "no run store configured"})

		return false
	}

	return true
}

func (s *Server) listRuns(ctx *gin.Context) {
	if !s.requireRepo(ctx) {
		return
	}

	limit, offset := 50, 0

	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})

			return
		}

		limit = n
	}

	if v := ctx.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset parameter"})

			return
		}

		offset = n
	}

	var runs []RunSummary
	var err error

	if ctx.Query("lat") != "" || ctx.Query("lng") != "" {
		lat, latErr := strconv.ParseFloat(ctx.Query("lat"), 64)
		lng, lngErr := strconv.ParseFloat(ctx.Query("lng"), 64)
		near := spatial.Point{Lat: lat, Lng: lng}

		if latErr != nil || lngErr != nil || near.Validate() != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat/lng parameters"})

			return
		}

		runs, err = s.repo.RunsNear(near, limit)
	} else {
		runs, err = s.repo.ListRuns(limit, offset)
	}

	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"runs": runs, "limit": limit, "offset": offset})
}

func (s *Server) getRun(ctx *gin.Context) {
	if !s.requireRepo(ctx) {
		return
	}

	runID := ctx.Param("id")

	result, err := s.repo.GetRun(runID)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, RunResponse{ID: runID, Result: result.View()})
}

// CandidateRequest is the body of the manual candidate toggle.
type CandidateRequest struct {
	Candidate *bool `json:"candidate" binding:"required"`
}

func (s *Server) setCandidate(ctx *gin.Context) {
	var req CandidateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	placeID := ctx.Param("id")

	result, err := s.orch.SetCandidate(placeID, *req.Candidate)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	place, _ := result.Place(placeID)

	if err := s.persist(result, place.CategoryName); err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"place": place, "category": result.Category(place.CategoryName)})
}

func (s *Server) refreshDetails(ctx *gin.Context) {
	result, err := s.orch.RefreshDetails(ctx.Request.Context())
	if err != nil {
		s.fail(ctx, err)

		return
	}

	if err := s.persist(result, ""); err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, result.View())
}

// persist stores the flags of the places of category, or of every place
// when category is empty, on the current stored run.
func (s *Server) persist(result *Result, category string) error {
	s.mu.Lock()
	runID := s.currentRunID
	s.mu.Unlock()

	if s.repo == nil || runID == "" {
		return nil
	}

	places := result.Places
	if category != "" {
		places = result.Category(category)
	}

	return s.repo.UpdateCandidates(runID, places)
}
