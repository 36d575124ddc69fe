package models

import (
	"time"
)

// TODO: split into different files when become too big

// Timeline geometry and editing limits. Every pixel<->time
// conversion in the repo goes through these values.
const (
	// MinClipSeconds is the shortest allowed trim window.
	MinClipSeconds = 0.5

	// MinZoomLevel / MaxZoomLevel bound pixels-per-second.
	MinZoomLevel = 10.0
	MaxZoomLevel = 300.0

	// DefaultZoomLevel for a fresh project.
	DefaultZoomLevel = 50.0

	// LeadingPadding is the pixel gap before t=0 on the timeline.
	LeadingPadding = 40.0

	// DefaultFPS is the nominal preview frame rate.
	DefaultFPS = 30

	// DefaultDuration is the nominal timeline length before
	// any media metadata arrives.
	DefaultDuration = 10.0
)

const DefaultProjectName = "Untitled Project"

type AssetKind string

const (
	AssetVideo AssetKind = "video"
	AssetImage AssetKind = "image"
)

// MediaAsset is one uploaded library entry. Assets are unique
// by Name within a project.
type MediaAsset struct {
	ID        int64     `json:"id"`
	ProjectID string    `json:"projectId"`
	URL       string    `json:"url"`
	Kind      AssetKind `json:"kind"`
	Name      string    `json:"name"`
}

type AssetFilter struct {
	Name       string
	MaxRespLen int
}

// Caption is one subtitle entry on the caption track.
// Start/End are composition-time seconds. A nil Style
// inherits the project default at render time.
type Caption struct {
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Text  string        `json:"text"`
	Style *CaptionStyle `json:"style,omitempty"`
}

// Duration returns caption length in seconds.
func (c Caption) Duration() float64 {
	return c.End - c.Start
}

// Contains reports whether t lies strictly inside [Start, End).
func (c Caption) Contains(t float64) bool {
	return t > c.Start && t < c.End
}

type FontWeight string

const (
	WeightNormal FontWeight = "normal"
	WeightBold   FontWeight = "bold"
)

type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

type CaptionPosition string

const (
	PositionTop    CaptionPosition = "top"
	PositionCenter CaptionPosition = "center"
	PositionBottom CaptionPosition = "bottom"
)

type CaptionStyle struct {
	Color           string          `json:"color"`
	FontSize        int             `json:"fontSize"`
	FontFamily      string          `json:"fontFamily"`
	FontWeight      FontWeight      `json:"fontWeight"`
	TextAlign       TextAlign       `json:"textAlign"`
	BackgroundColor string          `json:"backgroundColor"`
	Position        CaptionPosition `json:"position"`
	Opacity         float64         `json:"opacity"`
}

const (
	MinFontSize = 12
	MaxFontSize = 72
)

// DefaultCaptionStyle matches the preview renderer fallback.
func DefaultCaptionStyle() CaptionStyle {
	return CaptionStyle{
		Color:           "#FFFFFF",
		FontSize:        42,
		FontFamily:      "Inter, sans-serif",
		FontWeight:      WeightBold,
		TextAlign:       AlignCenter,
		BackgroundColor: "rgba(0, 0, 0, 0.6)",
		Position:        PositionBottom,
		Opacity:         1,
	}
}

type VoiceSettings struct {
	VoiceID         string  `json:"voiceId"`
	Speed           float64 `json:"speed"`
	Pitch           float64 `json:"pitch"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarityBoost"`
}

func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		VoiceID:         "narrator",
		Speed:           1,
		Pitch:           1,
		Stability:       0.5,
		SimilarityBoost: 0.75,
	}
}

// TimeRange is a [Start, End] window of source-time seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns the range length in seconds.
func (r TimeRange) Length() float64 {
	return r.End - r.Start
}

// Contains reports whether t lies strictly inside (Start, End).
func (r TimeRange) Contains(t float64) bool {
	return t > r.Start && t < r.End
}

// Project is the persisted editing aggregate. Mutation happens
// only through the project store; consumers get value snapshots.
type Project struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	OriginalVideoURL string        `json:"originalVideoUrl,omitempty"`
	MediaLibrary     []MediaAsset  `json:"mediaLibrary,omitempty"`
	GeneratedScript  string        `json:"generatedScript,omitempty"`
	Captions         []Caption     `json:"captions"`
	AudioURL         string        `json:"audioUrl,omitempty"`
	VoiceSettings    VoiceSettings `json:"voiceSettings"`
	DefaultStyle     CaptionStyle  `json:"defaultCaptionStyle"`
	Duration         float64       `json:"duration"`
	VideoTrim        TimeRange     `json:"videoTrim"`
	LastSaved        time.Time     `json:"lastSaved,omitempty"`
}

// NewProject returns a project with defaults and the given identity.
func NewProject(id string) Project {
	return Project{
		ID:            id,
		Name:          DefaultProjectName,
		Captions:      make([]Caption, 0),
		VoiceSettings: DefaultVoiceSettings(),
		DefaultStyle:  DefaultCaptionStyle(),
		Duration:      DefaultDuration,
		VideoTrim:     TimeRange{Start: 0, End: DefaultDuration},
	}
}

// ProjectSummary is the lightweight index entry for the
// project picker.
type ProjectSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	LastEdited time.Time `json:"lastEdited"`
	Duration   float64   `json:"duration"`
}

type ClipKind string

const (
	ClipVideo   ClipKind = "video"
	ClipAudio   ClipKind = "audio"
	ClipCaption ClipKind = "caption"
)

// ClipboardItem holds at most one copied clip. Payload fields
// are value snapshots, never live references into the project.
type ClipboardItem struct {
	Kind        ClipKind
	VideoURL    string
	VideoTrim   TimeRange
	AudioURL    string
	Caption     Caption
	SourceIndex int
}

// Playback holds transient player state. It is never persisted.
type Playback struct {
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	FPS         int     `json:"fps"`
	ZoomLevel   float64 `json:"zoomLevel"`
}

func DefaultPlayback() Playback {
	return Playback{
		IsPlaying:   false,
		CurrentTime: 0,
		FPS:         DefaultFPS,
		ZoomLevel:   DefaultZoomLevel,
	}
}

// specify custom time marshalling since
// time package is not stable.
const TimeFormat = "2006-01-02T15:04:05.999999999-07:00"
