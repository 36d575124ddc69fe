package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aura-labs/aura-studio/internal/lib/logger/sl"
	"github.com/aura-labs/aura-studio/internal/lib/timeutil"
	"github.com/aura-labs/aura-studio/internal/lib/utils/writer"
	"github.com/aura-labs/aura-studio/internal/models"
)

// Client talks to the script-generation and transcription
// service. Script generation streams SSE chunks; transcription
// is a single request-response.
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

type generateRequest struct {
	PromptText        string `json:"promptText"`
	InlineMediaBase64 string `json:"inlineMediaBase64,omitempty"`
	MimeType          string `json:"mimeType,omitempty"`
}

// Media is an inline attachment for analysis requests. Large
// sources must be shrunk by the caller before being inlined.
type Media struct {
	Data     []byte
	MimeType string
}

// GenerateScript streams a narration script for the prompt,
// optionally grounding the model on an inlined media sample.
// Each cleaned chunk is passed to onChunk as it arrives; the
// full assembled script is returned at the end. media and
// onChunk may be nil.
func (c *Client) GenerateScript(ctx context.Context, prompt string, media *Media, onChunk func(string)) (string, error) {
	const op = "ai.Client.GenerateScript"

	log := c.log.With(
		slog.String("op", op),
	)

	genReq := generateRequest{PromptText: prompt}
	if media != nil {
		genReq.InlineMediaBase64 = base64.StdEncoding.EncodeToString(media.Data)
		genReq.MimeType = media.MimeType
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/script", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error("request failed", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Error("unexpected status", slog.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	script := writer.New()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, found := strings.CutPrefix(scanner.Text(), "data: ")
		if !found || data == "[DONE]" {
			continue
		}

		chunk := CleanChunk(data)
		if chunk == "" {
			continue
		}

		script.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error("stream read failed", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("generated script", slog.Int("len", script.Len()))

	return script.String(), nil
}

var markupReplacer = strings.NewReplacer(
	"**", "",
	"__", "",
	"```", "",
	"##", "",
	"\\n", "\n",
)

// CleanChunk strips markdown emphasis and code-fence tokens
// the model leaks into plain narration text.
func CleanChunk(s string) string {
	return markupReplacer.Replace(s)
}

type transcribeRequest struct {
	MediaBase64 string `json:"mediaBase64"`
	MimeType    string `json:"mimeType"`
}

type transcribeResponse struct {
	Captions []transcriptEntry `json:"captions"`
}

type transcriptEntry struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Text  string `json:"text"`
}

// Transcribe returns word-timed captions for a narration track.
// The service reports timestamps as string-encoded seconds.
// Entries with unparsable or inverted timestamps are skipped,
// not fatal.
func (c *Client) Transcribe(ctx context.Context, media Media) ([]models.Caption, error) {
	const op = "ai.Client.Transcribe"

	log := c.log.With(
		slog.String("op", op),
	)

	body, err := json.Marshal(transcribeRequest{
		MediaBase64: base64.StdEncoding.EncodeToString(media.Data),
		MimeType:    media.MimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transcribe", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

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

	var transcript transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&transcript); err != nil {
		log.Error("failed to decode transcript", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c.parseEntries(transcript.Captions), nil
}

func (c *Client) parseEntries(entries []transcriptEntry) []models.Caption {
	const op = "ai.Client.parseEntries"

	log := c.log.With(
		slog.String("op", op),
	)

	captions := make([]models.Caption, 0, len(entries))
	for i, e := range entries {
		start, err := timeutil.ParseSeconds(e.Start)
		if err != nil {
			log.Warn("skip entry with bad start", slog.Int("idx", i), sl.Err(err))
			continue
		}
		end, err := timeutil.ParseSeconds(e.End)
		if err != nil {
			log.Warn("skip entry with bad end", slog.Int("idx", i), sl.Err(err))
			continue
		}
		if end <= start {
			log.Warn("skip inverted entry", slog.Int("idx", i))
			continue
		}
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}

		captions = append(captions, models.Caption{
			Start: start,
			End:   end,
			Text:  text,
		})
	}

	return captions
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
