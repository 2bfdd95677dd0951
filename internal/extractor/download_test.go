package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/audioextract/internal/logging"
	"github.com/therealutkarshpriyadarshi/audioextract/pkg/models"
)

// audioTool writes "<title>.<format>" into the output directory, taking the
// extension from --audio-format.
func audioTool(t *testing.T, argsFile string) string {
	t.Helper()
	return writeFakeTool(t, outputDirSnippet+`
fmt=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "--audio-format" ]; then fmt="$arg"; fi
  prev="$arg"
done
if [ -n "`+argsFile+`" ]; then
  for a in "$@"; do echo "$a" >> "`+argsFile+`"; done
fi
echo "[youtube] Extracting URL"
echo "[download] 100% of 3.1MiB" >&2
printf 'audio:%s' "$fmt" > "$dir/Test Song.$fmt"
printf 'cover' > "$dir/Test Song.jpg"
`)
}

type recordingArchiver struct {
	mu       sync.Mutex
	keys     []string
	ctxErrs  []error
	deadline []bool
	err      error
}

func (a *recordingArchiver) Archive(ctx context.Context, key string, _ []byte, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, hasDeadline := ctx.Deadline()
	a.keys = append(a.keys, key)
	a.ctxErrs = append(a.ctxErrs, ctx.Err())
	a.deadline = append(a.deadline, hasDeadline)
	return a.err
}

func TestDownloadConvertFlac(t *testing.T) {
	svc, cfg := newTestService(t, audioTool(t, ""), nil)

	file, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL, Format: "flac"})
	require.NoError(t, err)

	assert.Equal(t, "Test Song.flac", file.Name)
	assert.Equal(t, "audio/flac", file.ContentType)
	assert.Equal(t, []byte("audio:flac"), file.Data)
	assert.Equal(t, int64(len("audio:flac")), file.Size)

	assert.Empty(t, namespaceEntries(t, cfg))
}

func TestDownloadDefaultsToMp3(t *testing.T) {
	svc, _ := newTestService(t, audioTool(t, ""), nil)

	file, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, "Test Song.mp3", file.Name)
	assert.Equal(t, "audio/mpeg", file.ContentType)
}

func TestDownloadOriginalUsesOpus(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	svc, _ := newTestService(t, audioTool(t, argsFile), nil)

	file, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL, Original: true, Format: "wav"})
	require.NoError(t, err)
	assert.Equal(t, "Test Song.opus", file.Name)
	assert.Equal(t, "audio/ogg", file.ContentType)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	args := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.True(t, contains(args, "--embed-thumbnail"))
	assert.True(t, contains(args, "--no-playlist"))
	assert.Equal(t, testURL, args[len(args)-1])
}

func TestDownloadWavOmitsThumbnail(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	svc, _ := newTestService(t, audioTool(t, argsFile), nil)

	_, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL, Format: "wav"})
	require.NoError(t, err)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "--embed-thumbnail")
}

func TestDownloadInvalidInputDoesNotSpawn(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "spawned")
	svc, cfg := newTestService(t, writeFakeTool(t, `touch "`+marker+`"`+"\n"), nil)

	requests := []models.DownloadRequest{
		{URL: ""},
		{URL: "https://example.com/watch?v=1", Format: "mp3"},
		{URL: testURL, Format: "exe"},
		{URL: testURL, Format: "mp4"},
	}
	for _, req := range requests {
		_, err := svc.Download(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, KindInvalidInput, KindOf(err))
	}

	assert.False(t, fileExists(marker))
	assert.Empty(t, namespaceEntries(t, cfg))
}

func TestDownloadToolFailureCleansUp(t *testing.T) {
	tool := writeFakeTool(t, outputDirSnippet+`
printf 'partial' > "$dir/Test Song.webm.part"
printf 'cover' > "$dir/Test Song.webp"
echo "ERROR: Postprocessing: audio conversion failed" >&2
exit 1
`)
	svc, cfg := newTestService(t, tool, nil)

	_, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL, Format: "mp3"})
	require.Error(t, err)
	assert.Equal(t, KindExternalTool, KindOf(err))
	assert.Equal(t, "ERROR: Postprocessing: audio conversion failed", Message(err))

	assert.Empty(t, namespaceEntries(t, cfg))
}

func TestDownloadOnlySidecars(t *testing.T) {
	tool := writeFakeTool(t, outputDirSnippet+`
printf 'cover' > "$dir/Test Song.jpg"
printf 'cover' > "$dir/Test Song.webp"
`)
	svc, cfg := newTestService(t, tool, nil)

	_, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL, Format: "mp3"})
	require.Error(t, err)
	assert.Equal(t, KindNoAudio, KindOf(err))
	assert.Empty(t, namespaceEntries(t, cfg))
}

func TestDownloadNoOutput(t *testing.T) {
	svc, cfg := newTestService(t, writeFakeTool(t, "exit 0\n"), nil)

	_, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL, Format: "mp3"})
	require.Error(t, err)
	assert.Equal(t, KindNoOutput, KindOf(err))
	assert.Empty(t, namespaceEntries(t, cfg))
}

func TestDownloadToolNotFound(t *testing.T) {
	svc, cfg := newTestService(t, filepath.Join(t.TempDir(), "nope", "yt-dlp"), nil)

	_, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL, Format: "mp3"})
	require.Error(t, err)
	assert.Equal(t, KindToolNotFound, KindOf(err))
	assert.Empty(t, namespaceEntries(t, cfg))
}

func TestDownloadTimeout(t *testing.T) {
	tool := writeFakeTool(t, "exec sleep 5\n")
	cfg := testConfig(t, tool)
	cfg.ToolTimeout = 200 * time.Millisecond
	svc := NewService(cfg, nil, logging.Nop())

	start := time.Now()
	_, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL, Format: "mp3"})
	require.Error(t, err)
	assert.Equal(t, KindExternalTool, KindOf(err))
	assert.Equal(t, "yt-dlp timed out", Message(err))
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.Empty(t, namespaceEntries(t, cfg))
}

func TestDownloadTimeoutKillsForkedChildren(t *testing.T) {
	// sleep runs as a child of the shell and inherits its output pipes
	tool := writeFakeTool(t, outputDirSnippet+`
echo "[ExtractAudio] Destination: $dir/Test Song.mp3"
sleep 4
printf 'late' > "$dir/Test Song.mp3"
`)
	cfg := testConfig(t, tool)
	cfg.ToolTimeout = 200 * time.Millisecond
	svc := NewService(cfg, nil, logging.Nop())

	start := time.Now()
	_, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL, Format: "mp3"})
	require.Error(t, err)
	assert.Equal(t, "yt-dlp timed out", Message(err))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, namespaceEntries(t, cfg))
}

func TestDownloadSurvivesCallerCancellation(t *testing.T) {
	tool := writeFakeTool(t, outputDirSnippet+`
sleep 0.3
printf 'late' > "$dir/Test Song.mp3"
`)
	svc, cfg := newTestService(t, tool, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	file, err := svc.Download(ctx, models.DownloadRequest{URL: testURL, Format: "mp3"})
	require.NoError(t, err)
	assert.Equal(t, []byte("late"), file.Data)
	assert.Empty(t, namespaceEntries(t, cfg))
}

func TestDownloadCancelOnDisconnect(t *testing.T) {
	tool := writeFakeTool(t, "exec sleep 5\n")
	cfg := testConfig(t, tool)
	cfg.CancelOnDisconnect = true
	svc := NewService(cfg, nil, logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := svc.Download(ctx, models.DownloadRequest{URL: testURL, Format: "mp3"})
	require.Error(t, err)
	assert.Equal(t, KindExternalTool, KindOf(err))
	assert.Empty(t, namespaceEntries(t, cfg))
}

func TestDownloadCancelOnDisconnectKillsForkedChildren(t *testing.T) {
	cfg := testConfig(t, writeFakeTool(t, "sleep 4\n"))
	cfg.CancelOnDisconnect = true
	svc := NewService(cfg, nil, logging.Nop())

	// A client disconnect cancels the request context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := svc.Download(ctx, models.DownloadRequest{URL: testURL, Format: "mp3"})
	require.Error(t, err)
	assert.Equal(t, "yt-dlp was cancelled", Message(err))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, namespaceEntries(t, cfg))
}

func TestConcurrentDownloadsAreIsolated(t *testing.T) {
	// Each run fails unless its directory holds only its own file
	tool := writeFakeTool(t, outputDirSnippet+`
for arg in "$@"; do url="$arg"; done
sleep 0.2
printf '%s' "$url" > "$dir/Track.mp3"
sleep 0.2
count=$(ls -A "$dir" | wc -l)
if [ "$count" -ne 1 ]; then echo "foreign files in $dir" >&2; exit 3; fi
`)
	svc, cfg := newTestService(t, tool, nil)

	const n = 4
	var wg sync.WaitGroup
	results := make([]*AudioFile, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url := fmt.Sprintf("https://youtu.be/video%d", i)
			results[i], errs[i] = svc.Download(context.Background(), models.DownloadRequest{URL: url, Format: "mp3"})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("https://youtu.be/video%d", i), string(results[i].Data))
	}
	assert.Empty(t, namespaceEntries(t, cfg))
}

func TestDownloadArchivesResult(t *testing.T) {
	archiver := &recordingArchiver{}
	svc, _ := newTestService(t, audioTool(t, ""), archiver)

	_, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL, Format: "m4a"})
	require.NoError(t, err)

	require.Len(t, archiver.keys, 1)
	assert.True(t, strings.HasSuffix(archiver.keys[0], "/Test Song.m4a"), archiver.keys[0])
}

func TestDownloadIgnoresArchiveFailure(t *testing.T) {
	archiver := &recordingArchiver{err: errors.New("bucket unavailable")}
	svc, _ := newTestService(t, audioTool(t, ""), archiver)

	file, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL, Format: "mp3"})
	require.NoError(t, err)
	assert.Equal(t, "Test Song.mp3", file.Name)
}

func TestDownloadSkipsArchiveOnFailure(t *testing.T) {
	archiver := &recordingArchiver{}
	svc, _ := newTestService(t, writeFakeTool(t, "exit 1\n"), archiver)

	_, err := svc.Download(context.Background(), models.DownloadRequest{URL: testURL, Format: "mp3"})
	require.Error(t, err)
	assert.Empty(t, archiver.keys)
}

func TestDownloadArchiveOutlivesCaller(t *testing.T) {
	tool := writeFakeTool(t, outputDirSnippet+`
sleep 0.3
printf 'late' > "$dir/Test Song.mp3"
`)
	archiver := &recordingArchiver{}
	svc, _ := newTestService(t, tool, archiver)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.Download(ctx, models.DownloadRequest{URL: testURL, Format: "mp3"})
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	require.Len(t, archiver.keys, 1)
	assert.NoError(t, archiver.ctxErrs[0])
	assert.True(t, archiver.deadline[0])
}
