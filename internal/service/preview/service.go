package service

import (
	"log/slog"
	"time"

	"github.com/zencoder/go-dash/v3/mpd"

	"github.com/aura-labs/aura-studio/internal/lib/logger/sl"
	ptr "github.com/aura-labs/aura-studio/internal/lib/utils/pointers"
	"github.com/aura-labs/aura-studio/internal/models"
)

const (
	minBufferTime = 1500 * time.Millisecond

	videoBandwidth = 800_000
	audioBandwidth = 128_000
)

// Preview renders a static on-demand DASH manifest for the
// current composition so the player can stream the trimmed cut
// without a full export.
type Preview struct {
	log         *slog.Logger
	baseURL     string
	chunkLength time.Duration
}

func New(
	log *slog.Logger,
	baseURL string,
	chunkLength time.Duration,
) *Preview {
	return &Preview{
		log:         log,
		baseURL:     baseURL,
		chunkLength: chunkLength,
	}
}

// Manifest builds the MPD for one project snapshot. The single
// period covers the trim window; the audio adaptation set is
// present only when a narration track is attached.
func (p *Preview) Manifest(proj models.Project) *mpd.MPD {
	const op = "Preview.Manifest"

	log := p.log.With(
		slog.String("op", op),
		slog.String("projectId", proj.ID),
	)

	length := proj.VideoTrim.Length()
	if length <= 0 {
		length = proj.Duration
	}
	presentation := mpd.Duration(secondsToDuration(length))
	buffer := mpd.Duration(minBufferTime)

	man := mpd.NewMPD(
		mpd.DASH_PROFILE_ONDEMAND,
		presentation.String(),
		buffer.String(),
	)

	period := man.Periods[0]
	period.ID = "1"
	period.Duration = presentation
	period.BaseURL = []string{p.baseURL}

	period.AdaptationSets = []*mpd.AdaptationSet{p.videoSet(proj)}
	if proj.AudioURL != "" {
		period.AdaptationSets = append(period.AdaptationSets, p.audioSet(proj))
	}

	log.Debug(
		"built manifest",
		slog.Float64("length", length),
		slog.Int("adaptationSets", len(period.AdaptationSets)),
	)

	return man
}

// ManifestXML serializes the manifest for transport.
func (p *Preview) ManifestXML(proj models.Project) (string, error) {
	const op = "Preview.ManifestXML"

	log := p.log.With(
		slog.String("op", op),
		slog.String("projectId", proj.ID),
	)

	s, err := p.Manifest(proj).WriteToString()
	if err != nil {
		log.Error("failed to write manifest", sl.Err(err))
		return "", err
	}

	return s, nil
}

func (p *Preview) videoSet(proj models.Project) *mpd.AdaptationSet {
	return &mpd.AdaptationSet{
		ID:               ptr.Ptr("0"),
		ContentType:      ptr.Ptr("video"),
		SegmentAlignment: ptr.Ptr(true),
		Representations: []*mpd.Representation{{
			ID:        ptr.Ptr("0"),
			Bandwidth: ptr.Ptr[int64](videoBandwidth),
			Codecs:    ptr.Ptr("avc1.64001e"),
			FrameRate: ptr.Ptr("15"),
			Height:    ptr.Ptr[int64](360),
			SegmentTemplate: &mpd.SegmentTemplate{
				StartNumber:    ptr.Ptr[int64](1),
				Initialization: ptr.Ptr(initFile(proj.ID, "video")),
				Media:          ptr.Ptr(chunkFile(proj.ID, "video")),
				Duration:       ptr.Ptr(p.chunkLength.Milliseconds()),
				Timescale:      ptr.Ptr[int64](1000),
			},
			CommonAttributesAndElements: mpd.CommonAttributesAndElements{
				MimeType: ptr.Ptr(mpd.DASH_MIME_TYPE_VIDEO_MP4),
			},
		}},
		CommonAttributesAndElements: mpd.CommonAttributesAndElements{
			StartWithSAP: ptr.Ptr[int64](1),
		},
	}
}

func (p *Preview) audioSet(proj models.Project) *mpd.AdaptationSet {
	return &mpd.AdaptationSet{
		ID:               ptr.Ptr("1"),
		ContentType:      ptr.Ptr("audio"),
		SegmentAlignment: ptr.Ptr(true),
		Representations: []*mpd.Representation{{
			ID:                ptr.Ptr("1"),
			AudioSamplingRate: ptr.Ptr[int64](44100),
			Bandwidth:         ptr.Ptr[int64](audioBandwidth),
			Codecs:            ptr.Ptr("mp4a.40.2"),
			SegmentTemplate: &mpd.SegmentTemplate{
				StartNumber:    ptr.Ptr[int64](1),
				Initialization: ptr.Ptr(initFile(proj.ID, "audio")),
				Media:          ptr.Ptr(chunkFile(proj.ID, "audio")),
				Duration:       ptr.Ptr(p.chunkLength.Milliseconds()),
				Timescale:      ptr.Ptr[int64](1000),
			},
			CommonAttributesAndElements: mpd.CommonAttributesAndElements{
				MimeType: ptr.Ptr(mpd.DASH_MIME_TYPE_AUDIO_MP4),
			},
			AudioChannelConfiguration: &mpd.AudioChannelConfiguration{
				SchemeIDURI: ptr.Ptr("urn:mpeg:dash:23003:3:audio_channel_configuration:2011"),
				Value:       ptr.Ptr("2"),
			},
		}},
		CommonAttributesAndElements: mpd.CommonAttributesAndElements{
			StartWithSAP: ptr.Ptr[int64](1),
		},
	}
}

func initFile(projectID, track string) string {
	return projectID + "/" + track + "/init.mp4"
}

func chunkFile(projectID, track string) string {
	return projectID + "/" + track + "/chunk-$Number%05d$.mp4"
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
