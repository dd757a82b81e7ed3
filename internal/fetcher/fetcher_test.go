package fetcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mashup-go/internal/probe"
	"mashup-go/internal/types"
	"mashup-go/internal/workspace"
)

type stubInspector struct {
	duration time.Duration
	err      error
	calls    int
}

func (s *stubInspector) Inspect(ctx context.Context, path string) (probe.Info, error) {
	s.calls++
	return probe.Info{Duration: s.duration, Title: "Some Song"}, s.err
}

func setup(t *testing.T) (string, *workspace.Workspace) {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, "yt-dlp")
	if err := os.WriteFile(bin, []byte(fakeYTDLPScript), 0o755); err != nil {
		t.Fatalf("write fake yt-dlp: %v", err)
	}
	ws, err := workspace.New(dir)
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	return bin, ws
}

func TestFetch_WritesIndexedFile(t *testing.T) {
	bin, ws := setup(t)
	insp := &stubInspector{duration: 30 * time.Second}
	f := New(Options{Bin: bin, WatchURL: "https://example.test/watch?v=", MaxSourceSeconds: 250, Timeout: 5 * time.Second}, insp, nil)

	dl, err := f.Fetch(context.Background(), "AAAAAAAAAAA", 2, ws)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	path := dl.Path
	if dl.Title != "Some Song" || dl.Duration != 30*time.Second {
		t.Fatalf("inspection result not carried: %+v", dl)
	}
	if path != ws.DownloadPath(2) {
		t.Fatalf("expected %s, got %s", ws.DownloadPath(2), path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fetched: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "https://example.test/watch?v=AAAAAAAAAAA") {
		t.Fatalf("fake downloader did not receive watch url: %q", got)
	}
	if !strings.Contains(got, "duration <= 250") {
		t.Fatalf("duration filter not passed: %q", got)
	}
	if insp.calls != 1 {
		t.Fatalf("expected one inspection, got %d", insp.calls)
	}
}

func TestFetch_DownloaderFailureIsFetchError(t *testing.T) {
	bin, ws := setup(t)
	f := New(Options{Bin: bin, WatchURL: "u=", Timeout: 5 * time.Second}, nil, nil)

	_, err := f.Fetch(context.Background(), "FAILFAILFAI", 3, ws)
	kind, idx, ok := types.Stage(err)
	if !ok || kind != types.ErrFetch || idx != 3 {
		t.Fatalf("expected FetchError{3}, got %v", err)
	}
	if !strings.Contains(err.Error(), "Video unavailable") {
		t.Fatalf("stderr should surface in error: %v", err)
	}
}

func TestFetch_FilteredSourceProducesNoFile(t *testing.T) {
	bin, ws := setup(t)
	f := New(Options{Bin: bin, WatchURL: "u=", Timeout: 5 * time.Second}, nil, nil)

	_, err := f.Fetch(context.Background(), "SKIPSKIPSKI", 1, ws)
	if !errors.Is(err, types.ErrFetch) || !errors.Is(err, errNoOutput) {
		t.Fatalf("expected no-output FetchError, got %v", err)
	}
}

func TestFetch_RejectsSourceOverCeiling(t *testing.T) {
	bin, ws := setup(t)
	f := New(Options{Bin: bin, WatchURL: "u=", MaxSourceSeconds: 250, Timeout: 5 * time.Second}, &stubInspector{duration: 10 * time.Minute}, nil)

	_, err := f.Fetch(context.Background(), "AAAAAAAAAAA", 1, ws)
	if !errors.Is(err, types.ErrDurationCeiling) {
		t.Fatalf("expected duration ceiling error, got %v", err)
	}
}

func TestFetch_InspectionFailureIsTolerated(t *testing.T) {
	bin, ws := setup(t)
	f := New(Options{Bin: bin, WatchURL: "u=", Timeout: 5 * time.Second}, &stubInspector{err: errors.New("probe down")}, nil)

	dl, err := f.Fetch(context.Background(), "AAAAAAAAAAA", 1, ws)
	if err != nil {
		t.Fatalf("inspection errors should not fail the fetch: %v", err)
	}
	if dl.Path != ws.DownloadPath(1) || dl.Title != "" {
		t.Fatalf("unexpected download %+v", dl)
	}
}

func TestFetch_TimeoutKillsDownloader(t *testing.T) {
	bin, ws := setup(t)
	f := New(Options{Bin: bin, WatchURL: "u=", Timeout: 200 * time.Millisecond}, nil, nil)

	start := time.Now()
	_, err := f.Fetch(context.Background(), "SLOWSLOWSLO", 1, ws)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("timeout not enforced")
	}
}

const fakeYTDLPScript = `#!/bin/sh
out=""
all="$*"
url=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift ;;
  esac
  url="$1"
  shift
done
case "$url" in
  *FAIL*) echo "ERROR: [youtube] FAILFAILFAI: Video unavailable" >&2; exit 1 ;;
  *SKIP*) echo "does not pass filter, skipping .."; exit 0 ;;
  *SLOW*) exec sleep 10 ;;
esac
printf "%s" "$all" > "$out"
`
