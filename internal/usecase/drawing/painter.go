package drawing

// TextStyle describes how FillText lays out a string.
type TextStyle struct {
	Size     float64
	Font     string
	Align    string // left, center, right (start and end are treated as left and right)
	Baseline string // top, middle, alphabetic, bottom
}

// Painter is a 2D drawing context with browser-canvas semantics: paths
// persist across Fill and Stroke until the next BeginPath, and Save and
// Restore bracket style changes.
type Painter interface {
	Save()
	Restore()

	SetStrokeColor(c string)
	SetFillColor(c string)
	SetLineWidth(w float64)
	SetRoundCaps()

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	BezierCurveTo(c1x, c1y, c2x, c2y, x, y float64)
	Arc(cx, cy, r, startAngle, endAngle float64)
	Rect(x, y, w, h float64)
	ClosePath()

	Fill()
	Stroke()
	FillText(text string, x, y float64, style TextStyle)
}

// Surface is a canvas the interpreter can both read and paint.
type Surface interface {
	Raster
	Painter
}

// Sink receives an interpreter's user-visible side effects.
type Sink interface {
	// Say posts an assistant message.
	Say(msg string)
	// Checkpoint records the current canvas in the undo history.
	Checkpoint()
}
