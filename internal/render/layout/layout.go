package layout

import "image"

// Normalize ensures Min is <= Max on both axes.
func Normalize(rect image.Rectangle) image.Rectangle {
	if rect.Min.X > rect.Max.X {
		rect.Min.X, rect.Max.X = rect.Max.X, rect.Min.X
	}
	if rect.Min.Y > rect.Max.Y {
		rect.Min.Y, rect.Max.Y = rect.Max.Y, rect.Min.Y
	}
	return rect
}

// Edges returns the one pixel wide top, bottom, left and right strips of rect.
func Edges(rect image.Rectangle) []image.Rectangle {
	rect = Normalize(rect)
	if rect.Empty() {
		return nil
	}
	return []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+1),
		image.Rect(rect.Min.X, rect.Max.Y-1, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+1, rect.Max.Y),
		image.Rect(rect.Max.X-1, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
}

// GlyphOrigin returns the top-left corner of the index-th glyph. Margin and
// pitch both derive from the canvas width: width/20 and width/10.
func GlyphOrigin(canvasWidth, index int) image.Point {
	margin := canvasWidth / 20
	return image.Pt(margin+index*(canvasWidth/10), margin)
}

// Span is the half-open interval [Min, Max).
type Span struct{ Min, Max int }

// Len is at least 1 so a sampler always has a value to return.
func (s Span) Len() int {
	if s.Max <= s.Min {
		return 1
	}
	return s.Max - s.Min
}

// Pick maps a sample in [0, Len()) into the span.
func (s Span) Pick(intn func(n int) int) int {
	return s.Min + intn(s.Len())
}

// Area pairs the spans an endpoint's coordinates are drawn from.
type Area struct{ X, Y Span }

func (a Area) Pick(intn func(n int) int) image.Point {
	x := a.X.Pick(intn)
	y := a.Y.Pick(intn)
	return image.Pt(x, y)
}

// FixedLineAreas returns the absolute endpoint areas for obscuring lines.
func FixedLineAreas() (from, to Area) {
	from = Area{X: Span{10, 150}, Y: Span{10, 150}}
	to = Area{X: Span{10, 100}, Y: Span{10, 100}}
	return from, to
}

// RelativeLineAreas scales the endpoint areas to the canvas.
func RelativeLineAreas(width, height int) (from, to Area) {
	from = Area{X: Span{width / 20, width * 3 / 4}, Y: Span{height / 20, height * 3 / 4}}
	to = Area{X: Span{width / 20, width / 2}, Y: Span{height / 20, height / 2}}
	return from, to
}
