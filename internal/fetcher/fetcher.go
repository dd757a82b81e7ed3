// Package fetcher downloads the audio stream of one selected source into a
// run's workspace using yt-dlp.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"mashup-go/internal/logger"
	"mashup-go/internal/probe"
	"mashup-go/internal/types"
	"mashup-go/internal/workspace"
)

var errNoOutput = errors.New("downloader produced no file")

type Options struct {
	Bin              string
	WatchURL         string
	MaxSourceSeconds int
	Timeout          time.Duration
}

// Inspector reports the duration of a downloaded file. *probe.Prober
// satisfies it.
type Inspector interface {
	Inspect(ctx context.Context, path string) (probe.Info, error)
}

// Download is a fetched source on local disk. Title and Duration are only
// set when inspection succeeded.
type Download struct {
	Path     string
	Title    string
	Duration time.Duration
}

type Fetcher struct {
	opts      Options
	inspector Inspector
	log       *logger.Logger
}

func New(opts Options, inspector Inspector, log *logger.Logger) *Fetcher {
	if opts.Bin == "" {
		opts.Bin = "yt-dlp"
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Fetcher{opts: opts, inspector: inspector, log: log.Module("fetcher")}
}

// Fetch downloads source id as item index.
// Every failure comes back as a FetchError carrying index.
func (f *Fetcher) Fetch(ctx context.Context, id string, index int, ws *workspace.Workspace) (Download, error) {
	dest := ws.DownloadPath(index)
	log := f.log.WithField("index", index).WithField("source_id", id)

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, f.opts.Bin, f.args(id, dest)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("download %s: %w", id, ctx.Err())
		} else {
			err = fmt.Errorf("download %s: %w: %s", id, err, lastLine(stderr.String()))
		}
		log.WithField("error", err.Error()).Warn("fetch failed")
		return Download{}, types.FetchError(index, err)
	}

	if _, err := os.Stat(dest); err != nil {
		log.Warn("fetch produced no file")
		return Download{}, types.FetchError(index, fmt.Errorf("%s: %w (filtered by duration ceiling or unavailable)", id, errNoOutput))
	}

	dl := Download{Path: dest}
	if f.inspector != nil {
		info, err := f.inspector.Inspect(ctx, dest)
		switch {
		case err != nil:
			log.WithField("error", err.Error()).Warn("could not inspect fetched file")
		case f.opts.MaxSourceSeconds > 0 && info.Duration > time.Duration(f.opts.MaxSourceSeconds)*time.Second:
			return Download{}, types.FetchError(index, fmt.Errorf("%w: %s is %s, limit %ds",
				types.ErrDurationCeiling, id, info.Duration.Round(time.Second), f.opts.MaxSourceSeconds))
		default:
			dl.Title = info.Title
			dl.Duration = info.Duration
			log = log.WithField("source_duration", info.Duration.String())
			if info.Title != "" {
				log = log.WithField("title", info.Title)
			}
		}
	}

	log.WithField("elapsed_ms", time.Since(start).Milliseconds()).Info("fetched")
	return dl, nil
}

func (f *Fetcher) args(id, dest string) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--quiet",
		"--no-warnings",
		"--force-overwrites",
		"-f", "bestaudio/best",
	}
	if f.opts.MaxSourceSeconds > 0 {
		args = append(args, "--match-filter", fmt.Sprintf("duration <= %d", f.opts.MaxSourceSeconds))
	}
	args = append(args, "-o", dest, f.opts.WatchURL+id)
	return args
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
