// Package chat serves the WebSocket question-answering loop: retrieve
// transcript context for each message, stream a model response, and finish
// with one terminal event carrying the full answer and the ranked segments
// for client-side seeking.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"clipquery.app/backend/internal/storage/models"
)

// Retrieval depth for context building; deeper than the plain search
// endpoint's 3 so the model sees more of the transcript.
const contextTopK = 5

const (
	chatModel       = openai.GPT4oMini
	chatMaxTokens   = 250
	chatTemperature = 0.4
)

const basePrompt = `You are an intelligent video assistant that helps users understand video content. You have access to the video's transcript and can provide contextual answers.

Guidelines for responses:
- Be conversational and helpful - answer the user's question directly
- Only mention timestamps in [XX.Xs] format when they genuinely add value to help the user find relevant content
- Keep responses concise but informative (2-3 sentences ideal)
- Focus on being accurate and useful
- If the video content doesn't contain relevant information, say so honestly
- Don't force timestamp references into responses where they're not helpful`

type Searcher interface {
	Search(ctx context.Context, videoID string, query string, topK int) []models.SearchMatch
}

type Handler struct {
	searcher Searcher
	api      *openai.Client
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHandler(searcher Searcher, openaiAPIKey string, allowedOrigins []string, log zerolog.Logger) *Handler {
	allowed := map[string]bool{}
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return &Handler{
		searcher: searcher,
		api:      openai.NewClient(openaiAPIKey),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
		log: log.With().Str("component", "chat").Logger(),
	}
}

type inboundMessage struct {
	Message string `json:"message"`
}

type chunkEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type completeEvent struct {
	Type             string           `json:"type"`
	FullResponse     string           `json:"full_response"`
	VideoContextUsed bool             `json:"video_context_used"`
	SegmentsFound    int              `json:"segments_found"`
	SearchSegments   []segmentPayload `json:"search_segments"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type segmentPayload struct {
	StartTime       float64 `json:"start_time"`
	EndTime         float64 `json:"end_time"`
	Text            string  `json:"text"`
	Confidence      float64 `json:"confidence"`
	SimilarityScore float64 `json:"similarity_score"`
	TimestampText   string  `json:"timestamp_text"`
	RelevanceRank   int     `json:"relevance_rank"`
}

// Serve upgrades the request and runs the chat loop for one connection.
// Messages are handled strictly one at a time; the next message is not read
// until the current response stream completes.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, videoID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("video_id", videoID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Cancel any in-flight generation when the connection goes away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.log.Info().Str("video_id", videoID).Msg("chat connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn().Err(err).Str("video_id", videoID).Msg("chat connection dropped")
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if strings.TrimSpace(msg.Message) == "" {
			continue
		}

		if err := h.handleMessage(ctx, conn, videoID, msg.Message); err != nil {
			h.log.Warn().Err(err).Str("video_id", videoID).Msg("chat message failed")
			return
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, videoID string, message string) error {
	matches := h.searcher.Search(ctx, videoID, message, contextTopK)
	contextLines, segments := buildContext(matches)
	videoContext := strings.Join(contextLines, " ")
	systemPrompt := buildSystemPrompt(videoContext)

	stream, err := h.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       chatModel,
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		// The session survives an unavailable model; the client just gets a
		// terminal error event for this message.
		return conn.WriteJSON(errorEvent{
			Type:    "error",
			Message: "AI service temporarily unavailable: " + err.Error(),
		})
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if writeErr := conn.WriteJSON(errorEvent{
				Type:    "error",
				Message: "Response streaming interrupted",
			}); writeErr != nil {
				return writeErr
			}
			return nil
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		content := resp.Choices[0].Delta.Content
		full.WriteString(content)
		if err := conn.WriteJSON(chunkEvent{Type: "chunk", Content: content}); err != nil {
			return err
		}
	}

	return conn.WriteJSON(completeEvent{
		Type:             "complete",
		FullResponse:     full.String(),
		VideoContextUsed: videoContext != "",
		SegmentsFound:    len(contextLines),
		SearchSegments:   segments,
	})
}

func buildContext(matches []models.SearchMatch) ([]string, []segmentPayload) {
	var lines []string
	var segments []segmentPayload
	for i, match := range matches {
		text := strings.TrimSpace(match.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%.1fs] %s", match.StartTime, text))
		segments = append(segments, segmentPayload{
			StartTime:       match.StartTime,
			EndTime:         match.EndTime,
			Text:            text,
			Confidence:      match.Confidence,
			SimilarityScore: match.Confidence,
			TimestampText:   fmt.Sprintf("%.1fs", match.StartTime),
			RelevanceRank:   i + 1,
		})
	}
	return lines, segments
}

func buildSystemPrompt(videoContext string) string {
	if videoContext == "" {
		return basePrompt + "\n\nNo specific video segments match this query. Answer based on general knowledge if appropriate, or let the user know the video doesn't contain relevant information."
	}
	return basePrompt +
		"\n\nRelevant video content found:\n" + videoContext +
		"\n\nWhen answering, include timestamps like [5.0s] from the content above if they help the user locate relevant information. The timestamps are already formatted correctly - just include them naturally in your response when they add value."
}
