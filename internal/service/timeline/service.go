package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aura-labs/aura-studio/internal/lib/logger/sl"
	"github.com/aura-labs/aura-studio/internal/models"
)

// Gesture tuning. Zoom factors apply per wheel notch; the
// autoscroll trigger is the fraction of the viewport width the
// playhead may reach before the view starts following.
const (
	zoomInFactor      = 1.15
	zoomOutFactor     = 0.85
	shiftScrollFactor = 3.0
	followTrigger     = 0.7

	// arrowStep is the coarse seek step for plain arrow keys;
	// holding shift steps by a single frame.
	arrowStep = 1.0
)

// TrimHandle addresses one edge of the video trim window
// during a drag.
type TrimHandle string

const (
	HandleLeft  TrimHandle = "left"
	HandleRight TrimHandle = "right"
)

type dragKind int

const (
	dragNone dragKind = iota
	dragScrub
	dragTrim
)

// Surface owns timeline viewport geometry and translates raw
// pointer, wheel and keyboard input into store operations.
// Every pixel<->time conversion in the UI goes through TimeAt
// and PixelAt so geometry can never drift between gestures.
type Surface struct {
	log    *slog.Logger
	editor Editor

	mu            sync.Mutex
	scrollLeft    float64
	viewportWidth float64

	drag       dragKind
	dragHandle TrimHandle

	selected     bool
	selectedKind models.ClipKind
	selectedIdx  int
}

type Editor interface {
	Snapshot() models.Project
	PlaybackState() models.Playback
	Save(ctx context.Context) error
	SetCurrentTime(t float64)
	SetZoomLevel(z float64)
	SetVideoTrim(start, end float64)
	BeginScrub()
	EndScrub()
	TogglePlay()
	CopyClip(kind models.ClipKind, index int)
	CutClip(kind models.ClipKind, index int)
	PasteClip(atTime float64)
	DeleteClip(kind models.ClipKind, index int)
	SplitAtPlayhead(t float64)
}

func New(
	log *slog.Logger,
	editor Editor,
) *Surface {
	return &Surface{
		log:    log,
		editor: editor,
	}
}

// SetViewportWidth records the visible timeline width in pixels.
// Called on mount and on every resize.
func (s *Surface) SetViewportWidth(w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w < 0 {
		w = 0
	}
	s.viewportWidth = w
}

// ScrollLeft returns the current horizontal scroll offset.
func (s *Surface) ScrollLeft() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollLeft
}

// TimeAt converts a viewport-local x coordinate to composition
// seconds, clamped to the timeline.
func (s *Surface) TimeAt(x float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeAtLocked(x)
}

func (s *Surface) timeAtLocked(x float64) float64 {
	zoom := s.zoom()
	t := (x + s.scrollLeft - models.LeadingPadding) / zoom

	dur := s.editor.Snapshot().Duration
	if t < 0 {
		return 0
	}
	if t > dur {
		return dur
	}
	return t
}

// PixelAt converts composition seconds to a viewport-local x
// coordinate. The result may lie outside the viewport.
func (s *Surface) PixelAt(t float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pixelAtLocked(t)
}

func (s *Surface) pixelAtLocked(t float64) float64 {
	return models.LeadingPadding + t*s.zoom() - s.scrollLeft
}

func (s *Surface) zoom() float64 {
	z := s.editor.PlaybackState().ZoomLevel
	if z <= 0 {
		z = models.DefaultZoomLevel
	}
	return z
}

// HandleWheel routes a wheel event. Ctrl-wheel zooms around
// the cursor so the time under it stays put; plain wheel pans
// horizontally, accelerated while shift is held.
func (s *Surface) HandleWheel(deltaY, cursorX float64, ctrl, shift bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ctrl {
		step := deltaY
		if shift {
			step *= shiftScrollFactor
		}
		s.setScrollLocked(s.scrollLeft + step)
		return
	}

	oldZoom := s.zoom()
	factor := zoomInFactor
	if deltaY > 0 {
		factor = zoomOutFactor
	}
	s.editor.SetZoomLevel(oldZoom * factor)

	// anchor: keep the time under the cursor stationary
	newZoom := s.zoom()
	anchor := (cursorX + s.scrollLeft - models.LeadingPadding) / oldZoom
	s.setScrollLocked(models.LeadingPadding + anchor*newZoom - cursorX)
}

func (s *Surface) setScrollLocked(v float64) {
	if v < 0 {
		v = 0
	}
	s.scrollLeft = v
}

// FollowPlayhead keeps the playhead visible during playback.
// The view stays still until the playhead crosses the trigger
// fraction of the viewport, then scrolls just enough to pin it
// there.
func (s *Surface) FollowPlayhead(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.viewportWidth <= 0 {
		return
	}

	px := s.pixelAtLocked(t)
	trigger := s.viewportWidth * followTrigger
	if px <= trigger {
		return
	}

	s.setScrollLocked(models.LeadingPadding + t*s.zoom() - trigger)
}

// BeginScrub starts a playhead drag at x. The store suspends
// clock advancement until EndDrag.
func (s *Surface) BeginScrub(x float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drag = dragScrub
	s.editor.BeginScrub()
	s.editor.SetCurrentTime(s.timeAtLocked(x))
}

// BeginTrimDrag starts dragging one trim handle.
func (s *Surface) BeginTrimDrag(handle TrimHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drag = dragTrim
	s.dragHandle = handle
}

// DragTo routes pointer movement to the active gesture.
// Movement with no active drag is ignored.
func (s *Surface) DragTo(x float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.drag {
	case dragScrub:
		s.editor.SetCurrentTime(s.timeAtLocked(x))
	case dragTrim:
		s.dragTrimLocked(x)
	}
}

func (s *Surface) dragTrimLocked(x float64) {
	t := s.timeAtLocked(x)
	trim := s.editor.Snapshot().VideoTrim

	switch s.dragHandle {
	case HandleLeft:
		if t > trim.End-models.MinClipSeconds {
			t = trim.End - models.MinClipSeconds
		}
		s.editor.SetVideoTrim(t, trim.End)
	case HandleRight:
		if t < trim.Start+models.MinClipSeconds {
			t = trim.Start + models.MinClipSeconds
		}
		s.editor.SetVideoTrim(trim.Start, t)
	}
}

// EndDrag finishes the active gesture.
func (s *Surface) EndDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag == dragScrub {
		s.editor.EndScrub()
	}
	s.drag = dragNone
}

// SelectClip marks a clip as the target for keyboard and
// context-menu actions.
func (s *Surface) SelectClip(kind models.ClipKind, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = true
	s.selectedKind = kind
	s.selectedIdx = index
}

// ClearSelection drops the current selection.
func (s *Surface) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = false
}

// Selection returns the selected clip, if any.
func (s *Surface) Selection() (models.ClipKind, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedKind, s.selectedIdx, s.selected
}

// Key identifiers accepted by HandleKey. Names follow DOM
// KeyboardEvent codes lowered to our transport casing.
const (
	KeySpace  = "space"
	KeyLeft   = "arrowleft"
	KeyRight  = "arrowright"
	KeyHome   = "home"
	KeyEnd    = "end"
	KeyDelete = "delete"
	KeyCopy   = "copy"
	KeyCut    = "cut"
	KeyPaste  = "paste"
	KeySplit  = "split"
	KeySave   = "save"
)

// HandleKey executes the keyboard shortcut map. Unknown keys
// are logged no-ops so new frontend bindings fail soft.
func (s *Surface) HandleKey(key string, shift bool) {
	const op = "Surface.HandleKey"

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("op", op), slog.String("key", key))

	switch key {
	case KeySpace:
		s.editor.TogglePlay()
	case KeyLeft:
		s.stepPlayheadLocked(-s.seekStep(shift))
	case KeyRight:
		s.stepPlayheadLocked(s.seekStep(shift))
	case KeyHome:
		s.editor.SetCurrentTime(0)
	case KeyEnd:
		s.editor.SetCurrentTime(s.editor.Snapshot().Duration)
	case KeySave:
		if err := s.editor.Save(context.TODO()); err != nil {
			log.Error("save failed", sl.Err(err))
		}
	case KeyDelete:
		if !s.selected {
			log.Debug("delete with no selection")
			return
		}
		s.editor.DeleteClip(s.selectedKind, s.selectedIdx)
		s.selected = false
	case KeyCopy:
		if !s.selected {
			log.Debug("copy with no selection")
			return
		}
		s.editor.CopyClip(s.selectedKind, s.selectedIdx)
	case KeyCut:
		if !s.selected {
			log.Debug("cut with no selection")
			return
		}
		s.editor.CutClip(s.selectedKind, s.selectedIdx)
		s.selected = false
	case KeyPaste:
		s.editor.PasteClip(s.editor.PlaybackState().CurrentTime)
	case KeySplit:
		s.editor.SplitAtPlayhead(s.editor.PlaybackState().CurrentTime)
	default:
		log.Debug("unbound key")
	}
}

func (s *Surface) seekStep(shift bool) float64 {
	if !shift {
		return arrowStep
	}
	fps := s.editor.PlaybackState().FPS
	if fps <= 0 {
		fps = models.DefaultFPS
	}
	return 1 / float64(fps)
}

func (s *Surface) stepPlayheadLocked(delta float64) {
	s.editor.SetCurrentTime(s.editor.PlaybackState().CurrentTime + delta)
}

// ContextAction is one entry of the timeline context menu.
type ContextAction string

const (
	ActionCopy   ContextAction = "copy"
	ActionCut    ContextAction = "cut"
	ActionPaste  ContextAction = "paste"
	ActionDelete ContextAction = "delete"
	ActionSplit  ContextAction = "split"
)

// HandleContextAction executes a context-menu entry invoked at
// viewport coordinate x. Clip-addressed actions use the given
// target; paste and split resolve the time under the cursor.
func (s *Surface) HandleContextAction(action ContextAction, x float64, kind models.ClipKind, index int) {
	const op = "Surface.HandleContextAction"

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("op", op), slog.String("action", string(action)))

	switch action {
	case ActionCopy:
		s.editor.CopyClip(kind, index)
	case ActionCut:
		s.editor.CutClip(kind, index)
	case ActionPaste:
		s.editor.PasteClip(s.timeAtLocked(x))
	case ActionDelete:
		s.editor.DeleteClip(kind, index)
	case ActionSplit:
		s.editor.SplitAtPlayhead(s.timeAtLocked(x))
	default:
		log.Warn("unknown context action")
	}
}
