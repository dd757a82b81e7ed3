package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"mashup-go/internal/ffmpeg"
	"mashup-go/internal/logger"
	"mashup-go/internal/types"
	"mashup-go/internal/workspace"
)

type Options struct {
	Bin     string
	Timeout time.Duration
}

type Transcoder struct {
	opts    Options
	builder *ffmpeg.CommandBuilder
	log     *logger.Logger
}

func New(builder *ffmpeg.CommandBuilder, opts Options, log *logger.Logger) *Transcoder {
	if opts.Bin == "" {
		opts.Bin = "ffmpeg"
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Transcoder{opts: opts, builder: builder, log: log.Module("transcoder")}
}

// Transcode converts item index's download into normalized WAV. When the
// download is absent the item is skipped: ok is false and err is nil.
func (t *Transcoder) Transcode(ctx context.Context, index int, ws *workspace.Workspace) (path string, ok bool, err error) {
	src := ws.DownloadPath(index)
	dst := ws.AudioPath(index)
	log := t.log.WithField("index", index)

	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("no download for item, skipping")
			return "", false, nil
		}
		return "", false, types.TranscodeError(index, err)
	}

	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	args := t.builder.Normalize(ffmpeg.NormalizeParams{InputPath: src, OutputPath: dst})
	cmd := exec.CommandContext(ctx, t.opts.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		} else if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		log.WithField("error", err.Error()).Warn("transcode failed")
		return "", false, types.TranscodeError(index, fmt.Errorf("ffmpeg: %w", err))
	}

	if info, err := os.Stat(dst); err != nil || info.Size() == 0 {
		return "", false, types.TranscodeError(index, fmt.Errorf("ffmpeg wrote no audio to %s", dst))
	}

	log.WithField("elapsed_ms", time.Since(start).Milliseconds()).Debug("transcoded")
	return dst, true, nil
}
