package extractor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/audioextract/internal/logging"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/metrics"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/tracing"
	"github.com/therealutkarshpriyadarshi/audioextract/pkg/models"
)

// videoInfo holds the subset of yt-dlp's JSON dump we read
type videoInfo struct {
	Title     string        `json:"title"`
	Thumbnail string        `json:"thumbnail"`
	Duration  float64       `json:"duration"`
	Uploader  string        `json:"uploader"`
	Formats   []formatEntry `json:"formats"`
}

type formatEntry struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	AudioExt   string   `json:"audio_ext"`
	VCodec     string   `json:"vcodec"`
	ACodec     string   `json:"acodec"`
	ABR        *float64 `json:"abr"`
	Filesize   *float64 `json:"filesize"`
	FormatNote string   `json:"format_note"`
}

// Resolver produces video previews from metadata-only tool runs
type Resolver struct {
	tool      *YtDlp
	validator *URLValidator
	logger    *logging.Logger
}

// NewResolver creates a new resolver
func NewResolver(tool *YtDlp, validator *URLValidator, logger *logging.Logger) *Resolver {
	return &Resolver{tool: tool, validator: validator, logger: logger}
}

// Resolve validates url, runs the tool in JSON-dump mode and summarizes the result
func (r *Resolver) Resolve(ctx context.Context, url string) (*models.VideoSummary, error) {
	url = strings.TrimSpace(url)
	if err := r.validator.Validate(url); err != nil {
		metrics.RecordExtraction(models.ModeInfo, "-", string(KindOf(err)))
		return nil, err
	}

	span, ctx := tracing.StartSpan(ctx, "extractor.resolve")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "source_url", url)

	logger := r.logger.WithURL(url)
	start := time.Now()

	summary, err := r.resolve(ctx, url)

	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
		tracing.LogError(span, err)
	}
	logger.LogExtraction(models.ModeInfo, "-", outcome, time.Since(start), err)
	metrics.RecordExtraction(models.ModeInfo, "-", outcome)

	return summary, err
}

func (r *Resolver) resolve(ctx context.Context, url string) (*models.VideoSummary, error) {
	out, err := r.tool.Output(ctx, InfoArgs(url))
	if err != nil {
		return nil, err
	}

	var info videoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, newError(KindMalformedResponse, "Failed to parse video info", err)
	}

	return summarize(&info), nil
}

// summarize keeps audio-only formats in the tool's order
func summarize(info *videoInfo) *models.VideoSummary {
	summary := &models.VideoSummary{
		Title:     info.Title,
		Thumbnail: info.Thumbnail,
		Duration:  info.Duration,
		Uploader:  info.Uploader,
		Formats:   []models.AudioFormat{},
	}

	for _, f := range info.Formats {
		if !isAudioOnly(f) {
			continue
		}

		ext := f.AudioExt
		if ext == "" || ext == "none" {
			ext = f.Ext
		}

		format := models.AudioFormat{
			FormatID:   f.FormatID,
			Ext:        ext,
			ACodec:     f.ACodec,
			ABR:        f.ABR,
			FormatNote: f.FormatNote,
		}
		if f.Filesize != nil {
			size := int64(*f.Filesize)
			format.Filesize = &size
		}

		summary.Formats = append(summary.Formats, format)
	}

	return summary
}

// isAudioOnly matches on the "none" sentinels only; a missing acodec still counts
func isAudioOnly(f formatEntry) bool {
	return f.VCodec == "none" && f.ACodec != "none"
}
