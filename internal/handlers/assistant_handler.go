package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xpanvictor/ava/internal/domains/pipeline"
	"github.com/xpanvictor/ava/pkg/Logger"
)

// AssistantHandler accepts voice uploads and runs them through the pipeline.
type AssistantHandler struct {
	orchestrator *pipeline.Orchestrator
	logger       *Logger.Logger
}

func NewAssistantHandler(orchestrator *pipeline.Orchestrator, logger *Logger.Logger) *AssistantHandler {
	return &AssistantHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

func (h *AssistantHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/assistant", h.HandleAudio)
}

// HandleAudio runs one upload. By default it answers with the outcome once
// the run is over; with async=true it answers 202 as soon as the run is
// admitted and the outcome is only visible on the device stream.
//
// @Summary Run the voice pipeline
// @Description Uploads one recording; stage signals and the reply are pushed to the device stream
// @Tags Assistant
// @Accept multipart/form-data
// @Produce json
// @Param audio formData file true "Recorded audio"
// @Param async query bool false "Return 202 once the run is admitted"
// @Success 200 {object} RunResponse "Run finished"
// @Success 202 {object} StartRunResponse "Run admitted"
// @Failure 400 {object} ErrorResponse "Invalid upload or missing device"
// @Failure 409 {object} ErrorResponse "A run is already in flight for this device"
// @Failure 502 {object} ErrorResponse "A collaborator failed or the model reply was unusable"
// @Router /assistant [post]
func (h *AssistantHandler) HandleAudio(c *gin.Context) {
	deviceID, ok := ExtractDeviceID(c)
	if !ok {
		return
	}

	async := false
	if raw := c.Query("async"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, fmt.Errorf("%w: async must be a boolean", pipeline.ErrInvalidInput))
			return
		}
		async = v
	}

	reader, err := c.Request.MultipartReader()
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", pipeline.ErrInvalidInput, err))
		return
	}

	if async {
		audio, err := h.orchestrator.ReadAudio(reader)
		if err != nil {
			respondError(c, err)
			return
		}
		runID, err := h.orchestrator.Start(c.Request.Context(), deviceID, audio)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, StartRunResponse{RunID: runID})
		return
	}

	res, err := h.orchestrator.RunMultipart(c.Request.Context(), deviceID, reader)
	if err != nil {
		if pipeline.Code(err) == pipeline.CodeInternal {
			h.logger.Errorf("assistant run error for device %s: %v", deviceID, err)
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RunResponse{
		RunID:      res.RunID,
		Transcript: res.Transcript,
		Reply:      res.Reply,
	})
}
