package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-labs/aura-studio/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, srv.URL, "tts-key", 5*time.Second)
}

func TestSynthesize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tts", r.URL.Path)
		assert.Equal(t, "Bearer tts-key", r.Header.Get("Authorization"))

		var req struct {
			Text          string               `json:"text"`
			VoiceSettings models.VoiceSettings `json:"voiceSettings"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hello there.", req.Text)
		assert.Equal(t, "narrator", req.VoiceSettings.VoiceID)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3audio-bytes"))
	})

	audio, err := c.Synthesize(context.Background(), "Hello there.", models.DefaultVoiceSettings())
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3audio-bytes"), audio)
}

func TestSynthesizeEmptyText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})

	_, err := c.Synthesize(context.Background(), "   ", models.DefaultVoiceSettings())
	assert.Error(t, err)
}

func TestSynthesizeErrors(t *testing.T) {
	testCases := []struct {
		desc    string
		handler http.HandlerFunc
	}{
		{
			desc: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			desc: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			c := newTestClient(t, tc.handler)
			_, err := c.Synthesize(context.Background(), "text", models.DefaultVoiceSettings())
			assert.Error(t, err)
		})
	}
}
