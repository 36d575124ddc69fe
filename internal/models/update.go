package models

// CaptionUpdate carries partial caption edits. Nil fields
// keep the current value.
type CaptionUpdate struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Text  *string  `json:"text"`
}

// CaptionStyleUpdate carries partial style edits. Nil fields
// keep the current value.
type CaptionStyleUpdate struct {
	Color           *string          `json:"color"`
	FontSize        *int             `json:"fontSize"`
	FontFamily      *string          `json:"fontFamily"`
	FontWeight      *FontWeight      `json:"fontWeight"`
	TextAlign       *TextAlign       `json:"textAlign"`
	BackgroundColor *string          `json:"backgroundColor"`
	Position        *CaptionPosition `json:"position"`
	Opacity         *float64         `json:"opacity"`
}

// Apply merges the update into a style value.
func (u CaptionStyleUpdate) Apply(s CaptionStyle) CaptionStyle {
	if u.Color != nil {
		s.Color = *u.Color
	}
	if u.FontSize != nil {
		s.FontSize = *u.FontSize
	}
	if u.FontFamily != nil {
		s.FontFamily = *u.FontFamily
	}
	if u.FontWeight != nil {
		s.FontWeight = *u.FontWeight
	}
	if u.TextAlign != nil {
		s.TextAlign = *u.TextAlign
	}
	if u.BackgroundColor != nil {
		s.BackgroundColor = *u.BackgroundColor
	}
	if u.Position != nil {
		s.Position = *u.Position
	}
	if u.Opacity != nil {
		s.Opacity = *u.Opacity
	}

	return s
}
