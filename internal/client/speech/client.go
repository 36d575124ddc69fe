package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aura-labs/aura-studio/internal/lib/logger/sl"
	"github.com/aura-labs/aura-studio/internal/models"
)

// maxAudioSize caps a synthesized track at 64 MiB. Narration
// for a short video is a few megabytes at most.
const maxAudioSize = 64 << 20

// Client talks to the text-to-speech service.
type Client struct {
	log     *slog.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(
	log *slog.Logger,
	baseURL string,
	apiKey string,
	timeout time.Duration,
) *Client {
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type synthesizeRequest struct {
	Text          string               `json:"text"`
	VoiceSettings models.VoiceSettings `json:"voiceSettings"`
}

// Synthesize renders the script to narration audio and returns
// the encoded track (audio/mpeg).
func (c *Client) Synthesize(ctx context.Context, text string, vs models.VoiceSettings) ([]byte, error) {
	const op = "speech.Client.Synthesize"

	log := c.log.With(
		slog.String("op", op),
		slog.String("voiceId", vs.VoiceID),
	)

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: empty text", op)
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, VoiceSettings: vs})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error("request failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Error("unexpected status", slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioSize))
	if err != nil {
		log.Error("failed to read audio", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%s: empty audio response", op)
	}

	log.Info("synthesized audio", slog.Int("bytes", len(audio)))

	return audio, nil
}
