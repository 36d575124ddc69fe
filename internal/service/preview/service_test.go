package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-labs/aura-studio/internal/models"
)

func newTestPreview() *Preview {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, "http://localhost:8082/api/preview/", 4*time.Second)
}

func TestManifestCoversTrimWindow(t *testing.T) {
	p := newTestPreview()

	proj := models.NewProject("p1")
	proj.Duration = 60
	proj.VideoTrim = models.TimeRange{Start: 10, End: 40}

	man := p.Manifest(proj)

	require.Len(t, man.Periods, 1)
	assert.Equal(t, "PT30S", man.Periods[0].Duration.String())
	assert.Equal(t, []string{"http://localhost:8082/api/preview/"}, man.Periods[0].BaseURL)
}

func TestManifestAudioSetOnlyWithTrack(t *testing.T) {
	p := newTestPreview()

	proj := models.NewProject("p1")
	man := p.Manifest(proj)
	require.Len(t, man.Periods[0].AdaptationSets, 1)
	assert.Equal(t, "video", *man.Periods[0].AdaptationSets[0].ContentType)

	proj.AudioURL = "https://cdn/voice.mp3"
	man = p.Manifest(proj)
	require.Len(t, man.Periods[0].AdaptationSets, 2)
	assert.Equal(t, "audio", *man.Periods[0].AdaptationSets[1].ContentType)
}

func TestManifestXML(t *testing.T) {
	p := newTestPreview()

	proj := models.NewProject("p1")
	proj.AudioURL = "https://cdn/voice.mp3"

	xml, err := p.ManifestXML(proj)
	require.NoError(t, err)

	assert.Contains(t, xml, "urn:mpeg:dash:profile:isoff-on-demand:2011")
	assert.Contains(t, xml, "p1/video/init.mp4")
	assert.Contains(t, xml, "p1/audio/init.mp4")
}

func TestManifestZeroTrimFallsBackToDuration(t *testing.T) {
	p := newTestPreview()

	proj := models.NewProject("p1")
	proj.Duration = 25
	proj.VideoTrim = models.TimeRange{Start: 5, End: 5}

	man := p.Manifest(proj)
	assert.Equal(t, "PT25S", man.Periods[0].Duration.String())
}
