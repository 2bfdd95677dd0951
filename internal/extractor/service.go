package extractor

import (
	"github.com/therealutkarshpriyadarshi/audioextract/internal/config"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/logging"
)

// Metric labels for subprocess runs
const (
	ModeLabelInfo     = "info"
	ModeLabelDownload = "download"
)

// Service bundles the resolver and the orchestrator over one yt-dlp runner
type Service struct {
	*Resolver
	*Orchestrator

	tool *YtDlp
}

// NewService wires the extractor from configuration. archiver may be nil.
func NewService(cfg config.ExtractorConfig, archiver Archiver, logger *logging.Logger) *Service {
	tool := NewYtDlp(cfg.ToolPath, cfg.ToolTimeout, cfg.CancelOnDisconnect, cfg.MaxStderrBytes)
	validator := NewURLValidator(cfg.AllowedHosts)

	return &Service{
		Resolver:     NewResolver(tool, validator, logger),
		Orchestrator: NewOrchestrator(tool, validator, cfg.ScratchRoot, cfg.Namespace, cfg.DefaultFormat, archiver, logger),
		tool:         tool,
	}
}

// ToolAvailable reports whether yt-dlp resolves
func (s *Service) ToolAvailable() bool {
	return s.tool.Available()
}
