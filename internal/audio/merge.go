package audio

import (
	"errors"
	"fmt"
	"os"
	"time"

	"mashup-go/internal/types"
)

// Merge concatenates srcs into dst in the order given, starting from an empty
// clip of the given format. Nothing is inserted between clips, so the result
// is exactly as long as the sum of its inputs. Every input must share format.
func Merge(dst string, format Format, srcs []string) (time.Duration, error) {
	for _, src := range srcs {
		if _, err := os.Stat(src); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return 0, fmt.Errorf("%w: %s", types.ErrMissingSegment, src)
			}
			return 0, err
		}
	}

	out, enc, err := newEncoder(dst, format)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	fail := func(err error) (time.Duration, error) {
		out.Close()
		os.Remove(dst)
		return 0, err
	}

	total := 0
	for _, src := range srcs {
		r, err := openPCM(src)
		if err != nil {
			return fail(err)
		}
		if r.format != format {
			r.Close()
			return fail(fmt.Errorf("%s: format %s does not match %s", src, r.format, format))
		}
		n, err := r.copyTo(enc, r.frames)
		r.Close()
		if err != nil {
			return fail(fmt.Errorf("append %s: %w", src, err))
		}
		total += n
	}

	if err := closeEncoder(out, enc); err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("finalize %s: %w", dst, err)
	}
	return format.DurationOf(total), nil
}
