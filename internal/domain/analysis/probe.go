package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Metadata is what a Prober reads from a container.
type Metadata struct {
	Duration   float64
	FrameCount int
}

// Prober reads container metadata from a local video file.
type Prober interface {
	Probe(ctx context.Context, path string) (Metadata, error)
}

// FFProbe implements Prober with the ffprobe binary.
type FFProbe struct {
	Timeout time.Duration
}

// Probe runs ffprobe on path.
func (p FFProbe) Probe(ctx context.Context, path string) (Metadata, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}

	out, err := ffmpeg.ProbeWithTimeout(path, timeout, nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrProbe, err)
	}
	return parseProbe([]byte(out))
}

func parseProbe(raw []byte) (Metadata, error) {
	var doc struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			NbFrames  string `json:"nb_frames"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrProbe, err)
	}

	var m Metadata
	m.Duration, _ = strconv.ParseFloat(doc.Format.Duration, 64)
	for _, s := range doc.Streams {
		if s.CodecType != "video" {
			continue
		}
		m.FrameCount, _ = strconv.Atoi(s.NbFrames)
		break
	}
	return m, nil
}
