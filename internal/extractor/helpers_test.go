package extractor

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/therealutkarshpriyadarshi/audioextract/internal/config"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/logging"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

// outputDirSnippet sets $dir to the directory of the -o template
const outputDirSnippet = `out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-o" ]; then out="$arg"; fi
  prev="$arg"
done
dir=$(dirname "$out")
`

// writeFakeTool writes an executable shell script standing in for yt-dlp
func writeFakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("Failed to write fake tool: %v", err)
	}
	return path
}

func testConfig(t *testing.T, toolPath string) config.ExtractorConfig {
	t.Helper()
	return config.ExtractorConfig{
		ToolPath:      toolPath,
		ScratchRoot:   t.TempDir(),
		Namespace:     "audio-extract",
		AllowedHosts:  DefaultHosts,
		DefaultFormat: DefaultFormat,
		ToolTimeout:   10 * time.Second,
	}
}

func newTestService(t *testing.T, toolPath string, archiver Archiver) (*Service, config.ExtractorConfig) {
	t.Helper()
	cfg := testConfig(t, toolPath)
	return NewService(cfg, archiver, logging.Nop()), cfg
}

// namespaceEntries lists what is left under <scratchRoot>/<namespace>
func namespaceEntries(t *testing.T, cfg config.ExtractorConfig) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(cfg.ScratchRoot, cfg.Namespace))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("Failed to read namespace dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
