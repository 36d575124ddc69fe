package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	project "github.com/aura-labs/aura-studio/internal/service/project"

	"github.com/aura-labs/aura-studio/internal/models"
	"github.com/aura-labs/aura-studio/internal/storage"
)

func newTestSurface() (*Surface, *project.Store) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := project.New(log, nil, "/api/proxy/media")
	return New(log, store), store
}

func TestTimePixelRoundTrip(t *testing.T) {
	s, store := newTestSurface()
	store.SetDuration(120)
	store.SetZoomLevel(50)

	testCases := []struct {
		desc string
		t    float64
	}{
		{desc: "origin", t: 0},
		{desc: "mid timeline", t: 17.3},
		{desc: "end", t: 120},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.InDelta(t, tc.t, s.TimeAt(s.PixelAt(tc.t)), 1e-9)
		})
	}
}

func TestTimeAtClamps(t *testing.T) {
	s, store := newTestSurface()
	store.SetDuration(10)
	store.SetZoomLevel(50)

	// left of the leading padding
	assert.Equal(t, 0.0, s.TimeAt(0))
	// far right of the timeline end
	assert.Equal(t, 10.0, s.TimeAt(1e6))
}

func TestPixelAtUsesLeadingPadding(t *testing.T) {
	s, store := newTestSurface()
	store.SetZoomLevel(50)

	assert.Equal(t, models.LeadingPadding, s.PixelAt(0))
	assert.Equal(t, models.LeadingPadding+50, s.PixelAt(1))
}

func TestWheelZoomAnchorsCursor(t *testing.T) {
	s, store := newTestSurface()
	store.SetDuration(300)
	store.SetZoomLevel(50)

	// start away from the origin so the anchor math is not
	// masked by the scroll clamp at 0
	s.HandleWheel(600, 0, false, false)

	cursorX := 400.0
	before := s.TimeAt(cursorX)

	s.HandleWheel(-1, cursorX, true, false)
	assert.InDelta(t, 50*1.15, store.PlaybackState().ZoomLevel, 1e-9)
	assert.InDelta(t, before, s.TimeAt(cursorX), 1e-9)

	s.HandleWheel(1, cursorX, true, false)
	assert.InDelta(t, before, s.TimeAt(cursorX), 1e-9)
}

func TestWheelZoomClampsAtBounds(t *testing.T) {
	s, store := newTestSurface()
	store.SetZoomLevel(models.MaxZoomLevel)

	s.HandleWheel(-1, 0, true, false)
	assert.Equal(t, models.MaxZoomLevel, store.PlaybackState().ZoomLevel)

	store.SetZoomLevel(models.MinZoomLevel)
	s.HandleWheel(1, 0, true, false)
	assert.Equal(t, models.MinZoomLevel, store.PlaybackState().ZoomLevel)
}

func TestPlainWheelScrolls(t *testing.T) {
	s, store := newTestSurface()
	store.SetZoomLevel(50)

	s.HandleWheel(40, 0, false, false)
	assert.Equal(t, 40.0, s.ScrollLeft())
	// scrolling never touches the zoom level
	assert.Equal(t, 50.0, store.PlaybackState().ZoomLevel)

	// shift accelerates the pan
	s.HandleWheel(40, 0, false, true)
	assert.Equal(t, 160.0, s.ScrollLeft())

	// never scrolls past the origin
	s.HandleWheel(-1000, 0, false, true)
	assert.Equal(t, 0.0, s.ScrollLeft())
}

func TestFollowPlayhead(t *testing.T) {
	s, store := newTestSurface()
	store.SetDuration(300)
	store.SetZoomLevel(50)
	s.SetViewportWidth(1000)

	// playhead left of the trigger: view stays put
	s.FollowPlayhead(2)
	assert.Equal(t, 0.0, s.ScrollLeft())

	// past the trigger: playhead pins at 70% of the viewport
	s.FollowPlayhead(20)
	assert.Greater(t, s.ScrollLeft(), 0.0)
	assert.InDelta(t, 700.0, s.PixelAt(20), 1e-9)

	// view follows monotonically from there
	prev := s.ScrollLeft()
	s.FollowPlayhead(21)
	assert.Greater(t, s.ScrollLeft(), prev)
	assert.InDelta(t, 700.0, s.PixelAt(21), 1e-9)
}

func TestScrubGesture(t *testing.T) {
	s, store := newTestSurface()
	store.SetDuration(100)
	store.SetZoomLevel(50)

	s.BeginScrub(s.PixelAt(10))
	assert.True(t, store.IsScrubbing())
	assert.InDelta(t, 10, store.PlaybackState().CurrentTime, 1e-9)

	s.DragTo(s.PixelAt(25))
	assert.InDelta(t, 25, store.PlaybackState().CurrentTime, 1e-9)

	s.EndDrag()
	assert.False(t, store.IsScrubbing())

	// movement after release is ignored
	s.DragTo(s.PixelAt(60))
	assert.InDelta(t, 25, store.PlaybackState().CurrentTime, 1e-9)
}

func TestTrimDrag(t *testing.T) {
	s, store := newTestSurface()
	store.SetDuration(100)
	store.SetZoomLevel(50)

	s.BeginTrimDrag(HandleLeft)
	s.DragTo(s.PixelAt(20))
	s.EndDrag()
	assert.Equal(t, models.TimeRange{Start: 20, End: 100}, store.Snapshot().VideoTrim)

	s.BeginTrimDrag(HandleRight)
	s.DragTo(s.PixelAt(60))
	s.EndDrag()
	assert.Equal(t, models.TimeRange{Start: 20, End: 60}, store.Snapshot().VideoTrim)
}

func TestTrimDragRespectsMinimum(t *testing.T) {
	s, store := newTestSurface()
	store.SetDuration(100)
	store.SetZoomLevel(50)
	store.SetVideoTrim(20, 60)

	// dragging the left handle past the right one stops at the
	// minimum clip width
	s.BeginTrimDrag(HandleLeft)
	s.DragTo(s.PixelAt(90))
	s.EndDrag()

	trim := store.Snapshot().VideoTrim
	assert.InDelta(t, 60-models.MinClipSeconds, trim.Start, 1e-9)
	assert.Equal(t, 60.0, trim.End)
}

func TestKeyboardMap(t *testing.T) {
	s, store := newTestSurface()
	store.SetDuration(100)
	store.SetCaptions([]models.Caption{{Start: 0, End: 2, Text: "hi"}})

	s.HandleKey(KeySpace, false)
	assert.True(t, store.PlaybackState().IsPlaying)
	s.HandleKey(KeySpace, false)
	assert.False(t, store.PlaybackState().IsPlaying)

	s.HandleKey(KeyRight, false)
	assert.InDelta(t, 1, store.PlaybackState().CurrentTime, 1e-9)

	// shift steps by one frame
	s.HandleKey(KeyRight, true)
	assert.InDelta(t, 1+1.0/models.DefaultFPS, store.PlaybackState().CurrentTime, 1e-9)

	s.HandleKey(KeyLeft, false)
	assert.InDelta(t, 1.0/models.DefaultFPS, store.PlaybackState().CurrentTime, 1e-9)

	// clip shortcuts need a selection
	s.HandleKey(KeyDelete, false)
	assert.Len(t, store.Snapshot().Captions, 1)

	s.SelectClip(models.ClipCaption, 0)
	s.HandleKey(KeyCopy, false)
	s.HandleKey(KeyDelete, false)
	assert.Empty(t, store.Snapshot().Captions)
	_, _, selected := s.Selection()
	assert.False(t, selected)

	// paste inserts at the playhead
	store.SetCurrentTime(10)
	s.HandleKey(KeyPaste, false)
	caps := store.Snapshot().Captions
	require.Len(t, caps, 1)
	assert.Equal(t, 10.0, caps[0].Start)

	// home/end jump to the timeline bounds
	s.HandleKey(KeyEnd, false)
	assert.Equal(t, 100.0, store.PlaybackState().CurrentTime)
	s.HandleKey(KeyHome, false)
	assert.Equal(t, 0.0, store.PlaybackState().CurrentTime)
}

type recordingStorage struct {
	saved []models.Project
}

func (f *recordingStorage) SaveProject(_ context.Context, p models.Project) error {
	f.saved = append(f.saved, p)
	return nil
}

func (f *recordingStorage) Project(_ context.Context, id string) (models.Project, error) {
	return models.Project{}, storage.ErrProjectNotFound
}

func TestSaveKeyPersistsProject(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := &recordingStorage{}
	store := project.New(log, st, "/api/proxy/media")
	s := New(log, store)

	store.SetName("cut one")
	require.True(t, store.HasUnsavedChanges())

	s.HandleKey(KeySave, false)

	require.Len(t, st.saved, 1)
	assert.Equal(t, "cut one", st.saved[0].Name)
	assert.False(t, store.HasUnsavedChanges())
}

func TestContextMenu(t *testing.T) {
	s, store := newTestSurface()
	store.SetDuration(100)
	store.SetZoomLevel(50)
	store.SetCaptions([]models.Caption{{Start: 0, End: 4, Text: "long"}})

	s.HandleContextAction(ActionCopy, 0, models.ClipCaption, 0)
	s.HandleContextAction(ActionPaste, s.PixelAt(50), models.ClipCaption, 0)

	caps := store.Snapshot().Captions
	require.Len(t, caps, 2)
	assert.InDelta(t, 50, caps[1].Start, 1e-9)

	s.HandleContextAction(ActionSplit, s.PixelAt(2), models.ClipCaption, 0)
	assert.Len(t, store.Snapshot().Captions, 3)

	s.HandleContextAction(ActionDelete, 0, models.ClipCaption, 0)
	assert.Len(t, store.Snapshot().Captions, 2)
}
