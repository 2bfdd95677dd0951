package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/audioextract/internal/extractor"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/logging"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/metrics"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/middleware"
	"github.com/therealutkarshpriyadarshi/audioextract/pkg/models"
)

// Extractor is what the handlers need from the extraction service
type Extractor interface {
	Resolve(ctx context.Context, url string) (*models.VideoSummary, error)
	Download(ctx context.Context, req models.DownloadRequest) (*extractor.AudioFile, error)
	ToolAvailable() bool
}

type API struct {
	extractor     Extractor
	logger        *logging.Logger
	defaultFormat string
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	if !api.extractor.ToolAvailable() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"tool":   "missing",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"tool":   "ok",
	})
}

// List supported formats endpoint
func (api *API) listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, models.FormatsResponse{
		Allowed:       extractor.AllowedFormats.List(),
		Thumbnail:     extractor.ThumbnailFormats.List(),
		DefaultFormat: api.defaultFormat,
	})
}

// Video info endpoint
func (api *API) getInfo(c *gin.Context) {
	var req models.InfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	summary, err := api.extractor.Resolve(c.Request.Context(), req.URL)
	if err != nil {
		api.respondError(c, "Failed to get video info", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Audio download endpoint
func (api *API) download(c *gin.Context) {
	var req models.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	file, err := api.extractor.Download(c.Request.Context(), req)
	if err != nil {
		api.respondError(c, "Failed to download audio", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, encodeFilename(file.Name)))
	c.Header("Content-Length", strconv.Itoa(len(file.Data)))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (api *API) respondError(c *gin.Context, msg string, err error) {
	kind := extractor.KindOf(err)
	status := extractor.StatusCode(kind)

	logger := middleware.GetLogger(c, api.logger).WithField("error_kind", string(kind))
	if status >= http.StatusInternalServerError {
		logger.ErrorWithErr(msg, err)
	} else {
		logger.WarnWithErr(msg, err)
	}
	metrics.RecordError("api", string(kind))

	c.JSON(status, models.ErrorResponse{Error: extractor.Message(err)})
}

// encodeFilename percent-encodes name for the Content-Disposition header
func encodeFilename(name string) string {
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}
