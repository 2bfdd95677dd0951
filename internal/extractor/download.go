package extractor

import (
	"context"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/audioextract/internal/logging"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/metrics"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/tracing"
	"github.com/therealutkarshpriyadarshi/audioextract/pkg/models"
)

// archiveTimeout bounds a single archive upload
const archiveTimeout = 2 * time.Minute

// Archiver keeps a copy of produced files. Failures never affect the response.
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte, contentType string) error
}

// Orchestrator runs one download per call inside its own scratch workspace
type Orchestrator struct {
	tool          *YtDlp
	validator     *URLValidator
	scratchRoot   string
	namespace     string
	defaultFormat string
	archiver      Archiver
	logger        *logging.Logger
}

// NewOrchestrator creates a new orchestrator. archiver may be nil.
func NewOrchestrator(tool *YtDlp, validator *URLValidator, scratchRoot, namespace, defaultFormat string, archiver Archiver, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		tool:          tool,
		validator:     validator,
		scratchRoot:   scratchRoot,
		namespace:     namespace,
		defaultFormat: defaultFormat,
		archiver:      archiver,
		logger:        logger,
	}
}

// Download fetches audio for req and returns it read into memory.
// The workspace is removed before returning on every path.
func (o *Orchestrator) Download(ctx context.Context, req models.DownloadRequest) (*AudioFile, error) {
	mode := req.Mode()
	req.URL = strings.TrimSpace(req.URL)

	if err := o.validator.Validate(req.URL); err != nil {
		metrics.RecordExtraction(mode, "-", string(KindOf(err)))
		return nil, err
	}

	codec, err := ResolveFormat(req.Format, req.Original, o.defaultFormat)
	if err != nil {
		metrics.RecordExtraction(mode, "-", string(KindOf(err)))
		return nil, err
	}

	span, ctx := tracing.StartSpan(ctx, "extractor.download")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "mode", mode)
	tracing.SetTag(span, "format", codec)

	start := time.Now()
	file, ws, err := o.run(ctx, req.URL, codec)

	logger := o.logger.WithURL(req.URL)
	if ws != nil {
		logger = logger.WithWorkspace(ws.ID)
	}

	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
		tracing.LogError(span, err)
	} else {
		metrics.RecordOutput(codec, file.Size)
		o.archive(ctx, ws, file, logger)
	}
	logger.LogExtraction(mode, codec, outcome, time.Since(start), err)
	metrics.RecordExtraction(mode, codec, outcome)

	return file, err
}

func (o *Orchestrator) run(ctx context.Context, url, codec string) (*AudioFile, *Workspace, error) {
	ws, err := NewWorkspace(o.scratchRoot, o.namespace)
	if err != nil {
		return nil, nil, newError(KindInternal, "Failed to create download directory", err)
	}
	logger := o.logger.WithWorkspace(ws.ID)
	defer o.cleanup(ws, logger)

	logger.Debugf("Running yt-dlp into %s", ws.Dir)
	if err := o.tool.Stream(ctx, DownloadArgs(url, codec, ws.Dir), logger); err != nil {
		return nil, ws, err
	}

	name, err := ws.Locate()
	if err != nil {
		return nil, ws, err
	}

	file, err := ws.Read(name)
	if err != nil {
		return nil, ws, err
	}

	return file, ws, nil
}

// cleanup swallows removal errors so they never replace the primary result
func (o *Orchestrator) cleanup(ws *Workspace, logger *logging.Logger) {
	if err := ws.Cleanup(); err != nil {
		metrics.RecordCleanupFailure()
		logger.WarnWithErr("Failed to remove workspace", err)
	}
}

func (o *Orchestrator) archive(ctx context.Context, ws *Workspace, file *AudioFile, logger *logging.Logger) {
	if o.archiver == nil {
		return
	}

	// The upload outlives the request the same way the tool run does
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	key := ws.ID + "/" + file.Name
	if err := o.archiver.Archive(ctx, key, file.Data, file.ContentType); err != nil {
		metrics.RecordError("archive", "upload")
		logger.WarnWithErr("Failed to archive audio file", err)
	}
}
