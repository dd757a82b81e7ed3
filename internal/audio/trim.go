package audio

import (
	"fmt"
	"os"
	"time"
)

// Trim writes the first min(duration(src), max) of src to dst. Short inputs
// are copied whole and never padded. The output keeps src's PCM format, so
// trimming the same input with the same bound always yields the same bytes.
func Trim(src, dst string, max time.Duration) (time.Duration, error) {
	if max <= 0 {
		return 0, fmt.Errorf("trim bound must be positive, got %s", max)
	}

	r, err := openPCM(src)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	keep := r.frames
	if max < r.format.DurationOf(r.frames) {
		keep = min(r.frames, r.format.FramesFor(max))
	}

	out, enc, err := newEncoder(dst, r.format)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	written, err := r.copyTo(enc, keep)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return 0, fmt.Errorf("copy frames from %s: %w", src, err)
	}
	if err := closeEncoder(out, enc); err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("finalize %s: %w", dst, err)
	}

	return r.format.DurationOf(written), nil
}
