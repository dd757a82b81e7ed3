package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// Info describes a fetched media file.
type Info struct {
	Duration time.Duration
	Codec    string
	Title    string
	Artist   string
}

type Prober struct {
	bin string
}

func NewProber(ffprobeBin string) *Prober {
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &Prober{bin: ffprobeBin}
}

// Inspect reports duration and, when the file carries them, tags. MP3
// files are recognized by content and timed by walking their frames;
// everything else goes through ffprobe.
func (p *Prober) Inspect(ctx context.Context, path string) (Info, error) {
	fileType, title, artist := sniff(path)

	var info Info
	if fileType == tag.MP3 {
		d, err := mp3Duration(path)
		if err != nil {
			return Info{}, err
		}
		info.Duration = d
		info.Codec = "mp3"
	} else {
		out, err := p.probe(ctx, path)
		if err != nil {
			return Info{}, err
		}
		info = out
	}

	// embedded tags win over container metadata
	if title != "" {
		info.Title = title
	}
	if artist != "" {
		info.Artist = artist
	}
	return info, nil
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
}

type ffprobeFormat struct {
	Duration string            `json:"duration"`
	Tags     map[string]string `json:"tags"`
}

func (p *Prober) probe(ctx context.Context, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-select_streams", "a:0",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}

	var ff ffprobeOutput
	if err := json.Unmarshal(output, &ff); err != nil {
		return Info{}, fmt.Errorf("ffprobe output: %w", err)
	}

	secs, err := strconv.ParseFloat(ff.Format.Duration, 64)
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe duration %q: %w", ff.Format.Duration, err)
	}

	info := Info{
		Duration: time.Duration(secs * float64(time.Second)),
		Title:    lookupTag(ff.Format.Tags, "title"),
		Artist:   lookupTag(ff.Format.Tags, "artist"),
	}
	for _, s := range ff.Streams {
		if s.CodecType == "audio" {
			info.Codec = s.CodecName
			break
		}
	}
	return info, nil
}

func mp3Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total time.Duration

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return 0, fmt.Errorf("decode mp3 %s: %w", filepath.Base(path), err)
		}
		total += frame.Duration()
	}

	return total, nil
}

// sniff identifies the file by content and reads its tags, if any.
func sniff(path string) (tag.FileType, string, string) {
	f, err := os.Open(path)
	if err != nil {
		return tag.UnknownFileType, "", ""
	}
	defer f.Close()

	_, fileType, err := tag.Identify(f)
	if err != nil || fileType == tag.UnknownFileType {
		fileType = tag.UnknownFileType
		if mpegSync(f) {
			fileType = tag.MP3
		}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fileType, "", ""
	}
	meta, err := tag.ReadFrom(f)
	if err != nil {
		return fileType, "", ""
	}
	return fileType, strings.TrimSpace(meta.Title()), strings.TrimSpace(meta.Artist())
}

// mpegSync reports whether the file opens on an MPEG Layer III frame header.
func mpegSync(r io.ReadSeeker) bool {
	var b [2]byte
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return false
	}
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false
	}
	return b[0] == 0xFF && b[1]&0xE0 == 0xE0 && b[1]&0x06 == 0x02
}

func lookupTag(tags map[string]string, key string) string {
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
