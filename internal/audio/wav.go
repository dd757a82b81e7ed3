// Package audio edits normalized PCM WAV files: measuring, trimming and
// concatenating them frame by frame.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	pcmFormat   = 1
	chunkFrames = 4096
)

// Format identifies a PCM layout. Files can only be concatenated when their
// formats are equal.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// FramesFor converts a duration into a whole number of frames, rounding down.
// Whole seconds and the remainder are scaled separately so any positive
// Duration maps to a non-negative count.
func (f Format) FramesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	rate := int64(f.SampleRate)
	whole := int64(d / time.Second)
	frac := int64(d % time.Second)
	return int(whole*rate + frac*rate/int64(time.Second))
}

// DurationOf converts a frame count back into time.
func (f Format) DurationOf(frames int) time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(int64(frames) * int64(time.Second) / int64(f.SampleRate))
}

type pcmReader struct {
	f      *os.File
	dec    *wav.Decoder
	format Format
	frames int
	read   int
}

func openPCM(path string) (*pcmReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%s: not a valid wav file", path)
	}
	if dec.WavAudioFormat != pcmFormat {
		f.Close()
		return nil, fmt.Errorf("%s: unsupported wav encoding %d, want PCM", path, dec.WavAudioFormat)
	}
	if err := dec.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: locate pcm data: %w", path, err)
	}

	format := Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	frameSize := format.Channels * format.BitDepth / 8
	if frameSize == 0 {
		f.Close()
		return nil, fmt.Errorf("%s: invalid frame layout %s", path, format)
	}

	return &pcmReader{f: f, dec: dec, format: format, frames: dec.PCMSize / frameSize}, nil
}

func (r *pcmReader) Close() error {
	return r.f.Close()
}

// copyTo streams up to frames frames into enc and returns how many were
// written.
func (r *pcmReader) copyTo(enc *wav.Encoder, frames int) (int, error) {
	ch := r.format.Channels
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: ch, SampleRate: r.format.SampleRate},
		Data:           make([]int, chunkFrames*ch),
		SourceBitDepth: r.format.BitDepth,
	}

	written := 0
	for written < frames && r.read < r.frames {
		want := min(chunkFrames, frames-written, r.frames-r.read)
		buf.Data = buf.Data[:want*ch]

		n, err := r.dec.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return written, err
		}
		got := n / ch
		if got == 0 {
			break
		}
		buf.Data = buf.Data[:got*ch]
		if err := enc.Write(buf); err != nil {
			return written, err
		}
		written += got
		r.read += got
	}
	return written, nil
}

func newEncoder(path string, format Format) (*os.File, *wav.Encoder, error) {
	out, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	enc := wav.NewEncoder(out, format.SampleRate, format.BitDepth, format.Channels, pcmFormat)

	// An empty write emits the RIFF and data headers, so a file with zero
	// frames is still a valid WAV.
	empty := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           []int{},
		SourceBitDepth: format.BitDepth,
	}
	if err := enc.Write(empty); err != nil {
		out.Close()
		return nil, nil, err
	}
	return out, enc, nil
}

func closeEncoder(out *os.File, enc *wav.Encoder) error {
	if err := enc.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Inspect reports the PCM format and frame count of a WAV file.
func Inspect(path string) (Format, int, error) {
	r, err := openPCM(path)
	if err != nil {
		return Format{}, 0, err
	}
	defer r.Close()
	return r.format, r.frames, nil
}

// Duration reports the playing time of a WAV file.
func Duration(path string) (time.Duration, error) {
	format, frames, err := Inspect(path)
	if err != nil {
		return 0, err
	}
	return format.DurationOf(frames), nil
}
