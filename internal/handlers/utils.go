package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xpanvictor/ava/internal/domains/pipeline"
)

var ErrMissingDevice = errors.New("missing device id")

const codeMissingDevice = "missing_device"

// ExtractDeviceID reads the id set by DeviceCookieMiddleware, falling back to
// the raw cookie. It writes a 400 when neither is present.
func ExtractDeviceID(c *gin.Context) (string, bool) {
	deviceID := c.GetString(deviceContextKey)
	if deviceID == "" {
		deviceID, _ = c.Cookie(DeviceCookieName)
	}
	if strings.TrimSpace(deviceID) == "" {
		respondError(c, ErrMissingDevice)
		return "", false
	}
	return deviceID, true
}

func statusFor(err error) (int, string) {
	if errors.Is(err, ErrMissingDevice) {
		return http.StatusBadRequest, codeMissingDevice
	}
	code := pipeline.Code(err)
	switch code {
	case pipeline.CodeInvalidInput:
		return http.StatusBadRequest, code
	case pipeline.CodeDeviceChannelNotFound:
		return http.StatusNotFound, code
	case pipeline.CodeRunInProgress:
		return http.StatusConflict, code
	case pipeline.CodeCollaboratorFailure,
		pipeline.CodeInvalidToolArguments,
		pipeline.CodeUnsupportedTool,
		pipeline.CodeEmptyReply:
		return http.StatusBadGateway, code
	}
	return http.StatusInternalServerError, pipeline.CodeInternal
}

var errorMessages = map[string]string{
	codeMissingDevice:                  "Device id required",
	pipeline.CodeInvalidInput:          "Invalid request data",
	pipeline.CodeDeviceChannelNotFound: "Device channel not found",
	pipeline.CodeRunInProgress:         "A request for this device is already running",
	pipeline.CodeCollaboratorFailure:   "Upstream service failed",
	pipeline.CodeInvalidToolArguments:  "Assistant produced invalid tool arguments",
	pipeline.CodeUnsupportedTool:       "Assistant requested an unsupported tool",
	pipeline.CodeEmptyReply:            "Assistant produced an empty reply",
}

func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	resp := ErrorResponse{Error: "Internal server error", Code: code}
	if msg, ok := errorMessages[code]; ok {
		resp.Error = msg
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}
