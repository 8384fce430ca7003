// Package handlers implements the REST endpoints backing the simulation
// API, grounded on the teacher's internal/api/handlers/backtest.go (one
// handler struct per resource, injected with the dependencies it needs).
package handlers

import (
	"log"
	"net/http"
	"strconv"

	"fleema/internal/api/models"
	"fleema/internal/app"
	"fleema/internal/live"
	"fleema/internal/model"
	"fleema/internal/store"

	"github.com/gin-gonic/gin"
)

// RunHandler serves scenario submission, status, and live-streaming
// endpoints, mirroring the teacher's BacktestHandler shape.
type RunHandler struct {
	Store       *store.Store
	Broadcaster *live.Broadcaster
	Logger      *log.Logger
}

func NewRunHandler(st *store.Store, bc *live.Broadcaster, logger *log.Logger) *RunHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	return &RunHandler{Store: st, Broadcaster: bc, Logger: logger}
}

// SubmitRun runs a scenario synchronously and records it in the run
// registry. The simulation itself can be minutes of wall-clock time for a
// large fleet, but this tool is meant for single-operator local use, so a
// blocking request/response round trip (rather than a queue) matches how
// it's actually driven.
func (h *RunHandler) SubmitRun(c *gin.Context) {
	var req models.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	run, err := h.Store.Create(req.ConfigPath)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	_, result, err := app.Run(c.Request.Context(), req.ConfigPath, h.Logger, h.publish)
	if err != nil {
		_ = h.Store.Fail(run.ID, err.Error())
		writeError(c, http.StatusUnprocessableEntity, "RUN_FAILED", err.Error())
		return
	}

	if err := h.Store.Finish(run.ID, len(result.VehicleOutputs), result.TotalDistanceKm, result.TotalCost, result.SelfSufficiency); err != nil {
		h.Logger.Printf("warn: finish run %d: %v", run.ID, err)
	}

	c.JSON(http.StatusOK, models.RunResponse{
		RunID:           run.ID,
		VehicleCount:    len(result.VehicleOutputs),
		TotalDistanceKm: result.TotalDistanceKm,
		TotalCost:       result.TotalCost,
		TotalEmission:   result.TotalEmission,
		SelfSufficiency: result.SelfSufficiency,
		DeletedRides:    result.DeletedRides,
	})
}

// GetRun returns one run's stored summary.
func (h *RunHandler) GetRun(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "BAD_REQUEST", "id must be numeric")
		return
	}
	run, err := h.Store.Get(uint(id))
	if err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "run not found")
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListRuns returns every run in the registry, most recent first.
func (h *RunHandler) ListRuns(c *gin.Context) {
	runs, err := h.Store.List()
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, runs)
}

// Rank resolves every vehicle's candidate charging slots for a scenario
// and returns them sorted by score, without running the full simulation.
func (h *RunHandler) Rank(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	_, ranked, err := app.Rank(req.ConfigPath, h.Logger)
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, "RANK_FAILED", err.Error())
		return
	}

	out := make([]models.RankedCandidate, len(ranked))
	for i, r := range ranked {
		out[i] = models.RankedCandidate{
			VehicleID: r.VehicleID,
			Location:  r.Location,
			StartTime: r.StartTime,
			Score:     r.Score,
			DeltaSoC:  r.DeltaSoC,
			Charge:    r.Charge,
		}
	}
	c.JSON(http.StatusOK, out)
}

// StreamRun upgrades to a websocket and streams step events for whatever
// run is currently in flight.
func (h *RunHandler) StreamRun(c *gin.Context) {
	if h.Broadcaster == nil {
		writeError(c, http.StatusServiceUnavailable, "NO_BROADCASTER", "live streaming is disabled")
		return
	}
	h.Broadcaster.ServeHTTP(c.Writer, c.Request)
}

// publish adapts a dispatched task into a live.StepEvent. It is a no-op
// when no broadcaster is configured.
func (h *RunHandler) publish(vehicleID string, task model.Task) {
	if h.Broadcaster == nil {
		return
	}
	h.Broadcaster.Publish(live.StepEvent{
		VehicleID: vehicleID,
		Kind:      task.Kind.String(),
		StartTime: task.StartTime,
		EndTime:   task.EndTime,
		Location:  task.StartPoint.Name,
	})
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{Error: models.ErrorDetail{Code: code, Message: message}})
}
