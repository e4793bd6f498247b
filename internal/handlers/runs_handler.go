package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xpanvictor/ava/internal/domains/pipeline"
	"github.com/xpanvictor/ava/pkg/Logger"
)

const defaultRunsLimit = 20

type RunsHandler struct {
	journal pipeline.Journal
	logger  *Logger.Logger
}

func NewRunsHandler(journal pipeline.Journal, logger *Logger.Logger) *RunsHandler {
	return &RunsHandler{
		journal: journal,
		logger:  logger,
	}
}

func (h *RunsHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/runs", h.ListRuns)
}

// ListRuns returns the latest run outcomes of the calling device.
//
// @Summary List recent runs
// @Tags Runs
// @Produce json
// @Param limit query int false "Maximum number of runs"
// @Success 200 {object} ListRunsResponse "Runs, newest first"
// @Failure 400 {object} ErrorResponse "Invalid limit"
// @Router /runs [get]
func (h *RunsHandler) ListRuns(c *gin.Context) {
	deviceID, ok := ExtractDeviceID(c)
	if !ok {
		return
	}

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, fmt.Errorf("%w: limit must be a positive integer", pipeline.ErrInvalidInput))
			return
		}
		limit = n
	}

	records, err := h.journal.Recent(c.Request.Context(), deviceID, limit)
	if err != nil {
		h.logger.Errorf("list runs error: %v", err)
		respondError(c, err)
		return
	}

	runs := make([]RunSummary, 0, len(records))
	for _, rec := range records {
		runs = append(runs, newRunSummary(rec))
	}
	c.JSON(http.StatusOK, ListRunsResponse{Runs: runs})
}
