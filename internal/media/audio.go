// Package media shells out to ffmpeg/ffprobe for audio extraction and
// duration checks.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// ExtractAudio pulls a speech-optimized audio track out of a video file:
// mono, 16kHz, 64k mp3. Cuts a 75MB video down to a couple of MB while
// preserving timestamps. Caller removes the returned file.
func ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	tmp, err := os.CreateTemp("", "audio-*.mp3")
	if err != nil {
		return "", fmt.Errorf("error creating temp audio file: %w", err)
	}
	audioPath := tmp.Name()
	tmp.Close()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ab", "64k",
		"-ac", "1",
		"-ar", "16000",
		"-y",
		audioPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(audioPath)
		return "", fmt.Errorf("audio extraction failed: %w\nstderr: %s", err, stderr.String())
	}
	return audioPath, nil
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// ProbeDuration reads a video's duration in seconds with ffprobe. Returns
// false when the duration cannot be determined; callers treat that as
// "validation skipped", not an error.
func ProbeDuration(ctx context.Context, videoPath string) (float64, bool) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath)

	out, err := cmd.Output()
	if err != nil {
		return 0, false
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, false
	}

	if probe.Format.Duration != "" {
		if duration, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			return duration, true
		}
	}
	for _, stream := range probe.Streams {
		if stream.CodecType == "video" && stream.Duration != "" {
			if duration, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
				return duration, true
			}
		}
	}
	return 0, false
}
