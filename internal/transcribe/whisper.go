// Package transcribe wraps the speech-to-text engine. Whisper's own
// segmentation already has natural boundaries, so its segments bypass the
// smart segmenter entirely.
package transcribe

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"clipquery.app/backend/internal/storage/models"
)

type Client struct {
	api *openai.Client
}

func NewClient(apiKey string) *Client {
	return &Client{api: openai.NewClient(apiKey)}
}

// Transcribe sends an audio file to Whisper and returns its timestamped
// segments in pipeline order.
func (c *Client) Transcribe(ctx context.Context, audioPath string) ([]models.Segment, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	segments := make([]models.Segment, 0, len(resp.Segments))
	for _, segment := range resp.Segments {
		segments = append(segments, models.Segment{
			Text:      segment.Text,
			StartTime: segment.Start,
			EndTime:   segment.End,
		})
	}
	return segments, nil
}
