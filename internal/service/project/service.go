package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-labs/aura-studio/internal/lib/logger/sl"
	"github.com/aura-labs/aura-studio/internal/models"
	"github.com/aura-labs/aura-studio/internal/storage"
)

// driveLinkRe recognizes shareable remote-drive links
// (id=, /d/, /file/d/ forms).
var driveLinkRe = regexp.MustCompile(`(?:id=|/d/|/file/d/)([\w-]+)`)

// Store is the single source of truth for one open project
// and its transient playback state. Every consumer reads a
// value snapshot and writes through Store methods only; a
// mutex keeps the single-writer-at-a-time discipline explicit.
type Store struct {
	log         *slog.Logger
	projStorage ProjectStorage
	proxyPath   string

	mu        sync.Mutex
	proj      models.Project
	playback  models.Playback
	clipboard *models.ClipboardItem
	dirty     bool
	scrubbing bool
	// set when playback stopped because the playhead hit the
	// timeline end; seeking away from the end resumes playback.
	endedAtBound bool
}

type ProjectStorage interface {
	SaveProject(ctx context.Context, p models.Project) error
	Project(ctx context.Context, id string) (models.Project, error)
}

func New(
	log *slog.Logger,
	projStorage ProjectStorage,
	proxyPath string,
) *Store {
	return &Store{
		log:         log,
		projStorage: projStorage,
		proxyPath:   proxyPath,
		proj:        models.NewProject(uuid.NewString()),
		playback:    models.DefaultPlayback(),
	}
}

// Snapshot returns a value copy of the project for renderers
// and the export pipeline.
func (s *Store) Snapshot() models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyProject()
}

// PlaybackState returns the transient player state.
func (s *Store) PlaybackState() models.Playback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback
}

// HasUnsavedChanges reports whether mutations happened since
// the last successful save.
func (s *Store) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Clipboard returns a copy of the clipboard item, if any.
func (s *Store) Clipboard() (models.ClipboardItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clipboard == nil {
		return models.ClipboardItem{}, false
	}
	item := *s.clipboard
	if item.Caption.Style != nil {
		style := *item.Caption.Style
		item.Caption.Style = &style
	}
	return item, true
}

// SetName renames the project.
func (s *Store) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.proj.Name = name
	s.dirty = true
}

// AddMediaAsset appends an asset reference to the project's
// media library. Names are unique; re-adding a known name is a
// no-op, and assets of other projects are ignored.
func (s *Store) AddMediaAsset(asset models.MediaAsset) {
	const op = "Store.AddMediaAsset"

	s.mu.Lock()
	defer s.mu.Unlock()

	if asset.ProjectID != "" && asset.ProjectID != s.proj.ID {
		s.log.Debug("asset belongs to another project",
			slog.String("op", op),
			slog.String("project", asset.ProjectID),
		)
		return
	}

	for _, a := range s.proj.MediaLibrary {
		if a.Name == asset.Name {
			return
		}
	}

	s.proj.MediaLibrary = append(s.proj.MediaLibrary, asset)
	s.dirty = true
}

// SetVideoSource replaces the primary video reference. Remote-drive
// share links are rewritten to go through the media proxy here, so
// the UI never needs to know about the proxy. The playhead resets
// to 0; the trim window is left untouched until SetDuration.
func (s *Store) SetVideoSource(rawURL string) {
	const op = "Store.SetVideoSource"

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("op", op))

	s.proj.OriginalVideoURL = s.rewriteSource(rawURL)
	s.playback.CurrentTime = 0
	s.dirty = true

	log.Info("set video source", slog.String("url", s.proj.OriginalVideoURL))
}

func (s *Store) rewriteSource(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if !strings.Contains(u.Host, "drive.google") || !driveLinkRe.MatchString(rawURL) {
		return rawURL
	}

	return s.proxyPath + "?url=" + url.QueryEscape(rawURL)
}

// SetDuration sets the nominal timeline length and resets the
// trim window to [0, d]. This is the authority for trim
// re-initialization after media metadata loads.
func (s *Store) SetDuration(d float64) {
	const op = "Store.SetDuration"

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("op", op))

	if d <= 0 {
		log.Warn("non-positive duration, clamping", slog.Float64("duration", d))
		d = models.MinClipSeconds
	}

	s.proj.Duration = d
	s.proj.VideoTrim = models.TimeRange{Start: 0, End: d}
	if s.playback.CurrentTime > d {
		s.playback.CurrentTime = d
	}
	s.dirty = true

	log.Info("set duration", slog.Float64("duration", d))
}

// SetVideoTrim moves the trim window. Dragging the end handle past
// the current duration raises the duration to match (canonical
// extension policy); the window never shrinks below the minimum
// clip length.
func (s *Store) SetVideoTrim(start, end float64) {
	const op = "Store.SetVideoTrim"

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("op", op))

	if start < 0 {
		start = 0
	}
	if end < start+models.MinClipSeconds {
		end = start + models.MinClipSeconds
	}
	if end > s.proj.Duration {
		log.Info("trim end extends timeline", slog.Float64("from", s.proj.Duration), slog.Float64("to", end))
		s.proj.Duration = end
	}

	s.proj.VideoTrim = models.TimeRange{Start: start, End: end}
	s.dirty = true
}

// SetCaptions replaces the caption list, sorted by start time.
func (s *Store) SetCaptions(captions []models.Caption) {
	const op = "Store.SetCaptions"

	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]models.Caption, len(captions))
	copy(list, captions)
	sortCaptions(list)

	s.proj.Captions = list
	s.dirty = true

	s.log.With(slog.String("op", op)).Info("set captions", slog.Int("count", len(list)))
}

// UpdateCaption applies a partial edit to one caption.
// An out-of-range index is a logged no-op so a stale UI
// index never crashes the session. Editing Start does not
// re-sort; callers use NormalizeCaptionOrder when order matters.
func (s *Store) UpdateCaption(index int, upd models.CaptionUpdate) {
	const op = "Store.UpdateCaption"

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("op", op))

	if index < 0 || index >= len(s.proj.Captions) {
		log.Warn("caption index out of range", slog.Int("index", index))
		return
	}

	c := &s.proj.Captions[index]
	if upd.Start != nil {
		c.Start = *upd.Start
	}
	if upd.End != nil {
		c.End = *upd.End
	}
	if upd.Text != nil {
		c.Text = *upd.Text
	}
	s.dirty = true
}

// UpdateCaptionStyle applies a partial style override to one
// caption. A caption without an override starts from the
// project default style.
func (s *Store) UpdateCaptionStyle(index int, upd models.CaptionStyleUpdate) {
	const op = "Store.UpdateCaptionStyle"

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("op", op))

	if index < 0 || index >= len(s.proj.Captions) {
		log.Warn("caption index out of range", slog.Int("index", index))
		return
	}

	c := &s.proj.Captions[index]
	base := s.proj.DefaultStyle
	if c.Style != nil {
		base = *c.Style
	}
	style := clampStyle(upd.Apply(base))
	c.Style = &style
	s.dirty = true
}

// NormalizeCaptionOrder re-sorts captions by start time. Exposed
// explicitly instead of sorting on every unrelated update.
func (s *Store) NormalizeCaptionOrder() {
	s.mu.Lock()
	defer s.mu.Unlock()

	sortCaptions(s.proj.Captions)
}

// SetDefaultStyle replaces the project default caption style.
// Captions without an explicit override inherit it at render time.
func (s *Store) SetDefaultStyle(style models.CaptionStyle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.proj.DefaultStyle = clampStyle(style)
	s.dirty = true
}

// SetAudio replaces the narration audio reference. Applying a new
// track over an existing one clears the caption list, because
// caption timing was computed against the previous audio.
func (s *Store) SetAudio(audioURL string) {
	const op = "Store.SetAudio"

	s.mu.Lock()
	defer s.mu.Unlock()

	s.setAudioLocked(op, audioURL)
}

func (s *Store) setAudioLocked(op, audioURL string) {
	log := s.log.With(slog.String("op", op))

	if s.proj.AudioURL != "" && audioURL != s.proj.AudioURL && len(s.proj.Captions) > 0 {
		log.Info("new voice track invalidates captions", slog.Int("dropped", len(s.proj.Captions)))
		s.proj.Captions = make([]models.Caption, 0)
	}

	s.proj.AudioURL = audioURL
	s.dirty = true

	log.Info("set audio", slog.String("url", audioURL))
}

// SetScript replaces the generated script wholesale.
func (s *Store) SetScript(script string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.proj.GeneratedScript = script
	s.dirty = true
}

// AppendScript appends one streamed chunk to the script. Chunks
// arrive already cleaned of markup by the AI client.
func (s *Store) AppendScript(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.proj.GeneratedScript += chunk
	s.dirty = true
}

// SetVoiceSettings stores narration settings, clamped to the
// ranges the speech service accepts.
func (s *Store) SetVoiceSettings(vs models.VoiceSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vs.Speed = clamp(vs.Speed, 0.5, 2)
	vs.Pitch = clamp(vs.Pitch, 0.5, 2)
	vs.Stability = clamp(vs.Stability, 0, 1)
	vs.SimilarityBoost = clamp(vs.SimilarityBoost, 0, 1)

	s.proj.VoiceSettings = vs
	s.dirty = true
}

// CopyClip captures a value snapshot of the addressed clip into
// the clipboard. Addressing a clip that does not exist is a
// logged no-op.
func (s *Store) CopyClip(kind models.ClipKind, index int) {
	const op = "Store.CopyClip"

	s.mu.Lock()
	defer s.mu.Unlock()

	s.copyClipLocked(op, kind, index)
}

func (s *Store) copyClipLocked(op string, kind models.ClipKind, index int) bool {
	log := s.log.With(slog.String("op", op), slog.String("kind", string(kind)))

	switch kind {
	case models.ClipVideo:
		if s.proj.OriginalVideoURL == "" {
			log.Warn("no video to copy")
			return false
		}
		s.clipboard = &models.ClipboardItem{
			Kind:      models.ClipVideo,
			VideoURL:  s.proj.OriginalVideoURL,
			VideoTrim: s.proj.VideoTrim,
		}
	case models.ClipAudio:
		if s.proj.AudioURL == "" {
			log.Warn("no audio to copy")
			return false
		}
		s.clipboard = &models.ClipboardItem{
			Kind:     models.ClipAudio,
			AudioURL: s.proj.AudioURL,
		}
	case models.ClipCaption:
		if index < 0 || index >= len(s.proj.Captions) {
			log.Warn("caption index out of range", slog.Int("index", index))
			return false
		}
		c := s.proj.Captions[index]
		if c.Style != nil {
			style := *c.Style
			c.Style = &style
		}
		s.clipboard = &models.ClipboardItem{
			Kind:        models.ClipCaption,
			Caption:     c,
			SourceIndex: index,
		}
	default:
		log.Warn("unknown clip kind")
		return false
	}

	log.Info("copied clip")
	return true
}

// CutClip is CopyClip followed by DeleteClip on the same target.
func (s *Store) CutClip(kind models.ClipKind, index int) {
	const op = "Store.CutClip"

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.copyClipLocked(op, kind, index) {
		return
	}
	s.deleteClipLocked(op, kind, index)
}

// PasteClip inserts the clipboard content at the given time.
// Caption paste keeps the copied duration anchored at atTime and
// re-sorts the list. Audio paste replaces the single audio track
// wholesale. Video paste is unsupported (single video track).
// The clipboard is not consumed.
func (s *Store) PasteClip(atTime float64) {
	const op = "Store.PasteClip"

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("op", op))

	if s.clipboard == nil {
		log.Warn("paste with empty clipboard")
		return
	}

	switch s.clipboard.Kind {
	case models.ClipCaption:
		if atTime < 0 {
			atTime = 0
		}
		c := s.clipboard.Caption
		dur := c.Duration()
		c.Start = atTime
		c.End = atTime + dur
		if c.Style != nil {
			style := *c.Style
			c.Style = &style
		}
		s.proj.Captions = append(s.proj.Captions, c)
		sortCaptions(s.proj.Captions)
		s.dirty = true
		log.Info("pasted caption", slog.Float64("at", atTime))
	case models.ClipAudio:
		if s.clipboard.AudioURL == s.proj.AudioURL {
			log.Info("pasted audio is current track, nothing to do")
			return
		}
		s.setAudioLocked(op, s.clipboard.AudioURL)
	case models.ClipVideo:
		// Single video track, nowhere to paste a second one.
		log.Warn("video paste is unsupported")
	}
}

// DeleteClip removes the addressed clip. Deleting the audio track
// keeps captions (unlike replacement, there's no stale target left
// to desync against).
func (s *Store) DeleteClip(kind models.ClipKind, index int) {
	const op = "Store.DeleteClip"

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteClipLocked(op, kind, index)
}

func (s *Store) deleteClipLocked(op string, kind models.ClipKind, index int) {
	log := s.log.With(slog.String("op", op), slog.String("kind", string(kind)))

	switch kind {
	case models.ClipVideo:
		if s.proj.OriginalVideoURL == "" {
			log.Warn("no video to delete")
			return
		}
		s.proj.OriginalVideoURL = ""
		s.proj.VideoTrim = models.TimeRange{Start: 0, End: s.proj.Duration}
		s.dirty = true
	case models.ClipAudio:
		if s.proj.AudioURL == "" {
			log.Warn("no audio to delete")
			return
		}
		s.proj.AudioURL = ""
		s.dirty = true
	case models.ClipCaption:
		if index < 0 || index >= len(s.proj.Captions) {
			log.Warn("caption index out of range", slog.Int("index", index))
			return
		}
		s.proj.Captions = append(s.proj.Captions[:index], s.proj.Captions[index+1:]...)
		s.dirty = true
	default:
		log.Warn("unknown clip kind")
		return
	}

	log.Info("deleted clip")
}

// SplitAtPlayhead splits the caption strictly containing t into
// two captions sharing its text. When no caption contains t and t
// lies strictly inside the trim window, the operation degrades to
// truncating the trim end (there is no multi-segment video track,
// so a video "split" is really a truncation).
func (s *Store) SplitAtPlayhead(t float64) {
	const op = "Store.SplitAtPlayhead"

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("op", op), slog.Float64("at", t))

	for i, c := range s.proj.Captions {
		if !c.Contains(t) {
			continue
		}

		first := c
		first.End = t
		second := c
		second.Start = t
		if c.Style != nil {
			style := *c.Style
			second.Style = &style
		}

		captions := make([]models.Caption, 0, len(s.proj.Captions)+1)
		captions = append(captions, s.proj.Captions[:i]...)
		captions = append(captions, first, second)
		captions = append(captions, s.proj.Captions[i+1:]...)
		s.proj.Captions = captions
		s.dirty = true

		log.Info("split caption", slog.Int("index", i))
		return
	}

	if s.proj.VideoTrim.Contains(t) {
		s.truncateVideoLocked(log, t)
		return
	}

	log.Warn("nothing to split at playhead")
}

// truncateVideoLocked moves the trim end to t.
func (s *Store) truncateVideoLocked(log *slog.Logger, t float64) {
	s.proj.VideoTrim.End = t
	if s.proj.VideoTrim.Length() < models.MinClipSeconds {
		s.proj.VideoTrim.End = s.proj.VideoTrim.Start + models.MinClipSeconds
	}
	s.dirty = true

	log.Info("truncated video trim", slog.Float64("end", s.proj.VideoTrim.End))
}

// SetCurrentTime seeks the playhead, clamped to [0, duration].
// Seeking away from the end after an automatic stop resumes
// playback.
func (s *Store) SetCurrentTime(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t = clamp(t, 0, s.proj.Duration)
	s.playback.CurrentTime = t

	if s.endedAtBound && t < s.proj.Duration {
		s.endedAtBound = false
		s.playback.IsPlaying = true
	}
}

// SetPlaying flips the play state explicitly.
func (s *Store) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playback.IsPlaying = playing
	s.endedAtBound = false
}

// TogglePlay toggles the play state.
func (s *Store) TogglePlay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playback.IsPlaying = !s.playback.IsPlaying
	s.endedAtBound = false
}

// Advance moves the playhead forward by a wall-clock delta from
// the clock driver. It is a no-op while stopped or while a scrub
// drag owns the playhead. Hitting the timeline end clamps and
// stops playback.
func (s *Store) Advance(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playback.IsPlaying || s.scrubbing || delta <= 0 {
		return
	}

	t := s.playback.CurrentTime + delta
	if t >= s.proj.Duration {
		s.playback.CurrentTime = s.proj.Duration
		s.playback.IsPlaying = false
		s.endedAtBound = true
		return
	}
	s.playback.CurrentTime = t
}

// SetZoomLevel sets pixels-per-second, clamped to the configured
// window. Zoom never touches the dirty flag.
func (s *Store) SetZoomLevel(z float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playback.ZoomLevel = clamp(z, models.MinZoomLevel, models.MaxZoomLevel)
}

// BeginScrub marks a pointer drag as the sole playhead writer;
// the clock driver skips advancement until EndScrub.
func (s *Store) BeginScrub() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrubbing = true
}

// EndScrub releases the playhead back to the clock driver.
func (s *Store) EndScrub() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrubbing = false
}

// IsScrubbing reports whether a scrub drag is active.
func (s *Store) IsScrubbing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrubbing
}

// Save persists the project subset and index entry, then clears
// the dirty flag. Blob-style transient references never survive a
// reload, so they are stripped before serialization. State is only
// committed on a confirmed success path.
func (s *Store) Save(ctx context.Context) error {
	const op = "Store.Save"

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("op", op), slog.String("id", s.proj.ID))

	p := s.copyProject()
	p.OriginalVideoURL = dropTransientURL(p.OriginalVideoURL)
	p.AudioURL = dropTransientURL(p.AudioURL)
	p.LastSaved = time.Now()

	if err := s.projStorage.SaveProject(ctx, p); err != nil {
		log.Error("failed to save project", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.proj.LastSaved = p.LastSaved
	s.dirty = false

	log.Info("saved project", slog.String("name", p.Name))

	return nil
}

// Load replaces the open project with the stored one, or a fresh
// project carrying the requested id when nothing is stored under
// it. Transient playback state resets and the clipboard never
// survives a project switch.
func (s *Store) Load(ctx context.Context, id string) error {
	const op = "Store.Load"

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("op", op), slog.String("id", id))

	p, err := s.projStorage.Project(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrProjectNotFound) {
			log.Info("project not found, starting fresh")
			p = models.NewProject(id)
		} else {
			log.Error("failed to load project", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	s.proj = p
	s.playback = models.DefaultPlayback()
	s.clipboard = nil
	s.scrubbing = false
	s.endedAtBound = false
	s.dirty = false

	log.Info("loaded project", slog.String("name", p.Name))

	return nil
}

// Reset restores every field to defaults under a new identity.
// Used by "new project" flows.
func (s *Store) Reset() {
	const op = "Store.Reset"

	s.mu.Lock()
	defer s.mu.Unlock()

	s.proj = models.NewProject(uuid.NewString())
	s.playback = models.DefaultPlayback()
	s.clipboard = nil
	s.scrubbing = false
	s.endedAtBound = false
	s.dirty = false

	s.log.With(slog.String("op", op)).Info("reset project", slog.String("id", s.proj.ID))
}

func (s *Store) copyProject() models.Project {
	p := s.proj

	if len(s.proj.MediaLibrary) > 0 {
		p.MediaLibrary = make([]models.MediaAsset, len(s.proj.MediaLibrary))
		copy(p.MediaLibrary, s.proj.MediaLibrary)
	}

	p.Captions = make([]models.Caption, len(s.proj.Captions))
	copy(p.Captions, s.proj.Captions)
	for i := range p.Captions {
		if p.Captions[i].Style != nil {
			style := *p.Captions[i].Style
			p.Captions[i].Style = &style
		}
	}

	return p
}

func sortCaptions(captions []models.Caption) {
	sort.SliceStable(captions, func(i, j int) bool {
		return captions[i].Start < captions[j].Start
	})
}

func clampStyle(style models.CaptionStyle) models.CaptionStyle {
	if style.FontSize < models.MinFontSize {
		style.FontSize = models.MinFontSize
	}
	if style.FontSize > models.MaxFontSize {
		style.FontSize = models.MaxFontSize
	}
	style.Opacity = clamp(style.Opacity, 0, 1)

	return style
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// dropTransientURL filters out blob-style references that cannot
// outlive the browser session.
func dropTransientURL(u string) string {
	if strings.HasPrefix(u, "blob:") || strings.HasPrefix(u, "data:") {
		return ""
	}
	return u
}
