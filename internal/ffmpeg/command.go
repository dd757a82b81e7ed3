package ffmpeg

import (
	"fmt"
)

// Format is the normalized audio representation every fetched item is
// converted to before trimming: 16-bit little-endian PCM in a WAV container.
type Format struct {
	SampleRate int
	Channels   int
}

const BitDepth = 16

type CommandBuilder struct {
	Format Format
}

func NewCommandBuilder(format Format) *CommandBuilder {
	return &CommandBuilder{Format: format}
}

type NormalizeParams struct {
	InputPath  string
	OutputPath string
}

// Normalize returns ffmpeg arguments that decode the first audio stream of
// the input and write it as PCM WAV in the builder's format.
func (b *CommandBuilder) Normalize(p NormalizeParams) []string {
	args := []string{
		"-nostats", "-hide_banner", "-loglevel", "error",
		"-y",
		"-i", p.InputPath,
		"-map", "0:a:0",
		"-vn",
		"-map_metadata", "-1",
		"-fflags", "+bitexact",
		"-flags:a", "+bitexact",
	}

	args = append(args, b.encodeArgs()...)

	args = append(args, "-f", "wav", p.OutputPath)

	return args
}

func (b *CommandBuilder) encodeArgs() []string {
	return []string{
		"-c:a", fmt.Sprintf("pcm_s%dle", BitDepth),
		"-ar", fmt.Sprintf("%d", b.Format.SampleRate),
		"-ac", fmt.Sprintf("%d", b.Format.Channels),
	}
}
