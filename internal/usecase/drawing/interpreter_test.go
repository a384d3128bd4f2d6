package drawing

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workwithme/internal/domain"
)

// recordingSurface paints nothing; it logs painter calls over a real raster
// so snapping can read pre-painted ink.
type recordingSurface struct {
	*image.RGBA
	ops   []string
	depth int
}

func newRecordingSurface(w, h int) *recordingSurface {
	return &recordingSurface{RGBA: blankRaster(w, h)}
}

func (r *recordingSurface) record(format string, args ...any) {
	r.ops = append(r.ops, fmt.Sprintf(format, args...))
}

func (r *recordingSurface) Save()                   { r.depth++; r.record("save") }
func (r *recordingSurface) Restore()                { r.depth--; r.record("restore") }
func (r *recordingSurface) SetStrokeColor(c string) { r.record("stroke-color %s", c) }
func (r *recordingSurface) SetFillColor(c string)   { r.record("fill-color %s", c) }
func (r *recordingSurface) SetLineWidth(w float64)  { r.record("line-width %g", w) }
func (r *recordingSurface) SetRoundCaps()           { r.record("round-caps") }
func (r *recordingSurface) BeginPath()              { r.record("begin") }
func (r *recordingSurface) MoveTo(x, y float64)     { r.record("move %.0f %.0f", x, y) }
func (r *recordingSurface) LineTo(x, y float64)     { r.record("line %.0f %.0f", x, y) }
func (r *recordingSurface) ClosePath()              { r.record("close") }
func (r *recordingSurface) Fill()                   { r.record("fill") }
func (r *recordingSurface) Stroke()                 { r.record("stroke") }
func (r *recordingSurface) Rect(x, y, w, h float64) { r.record("rect %.0f %.0f %.0f %.0f", x, y, w, h) }
func (r *recordingSurface) Arc(cx, cy, rad, a0, a1 float64) {
	r.record("arc %.0f %.0f %.0f", cx, cy, rad)
}
func (r *recordingSurface) BezierCurveTo(c1x, c1y, c2x, c2y, x, y float64) {
	r.record("bezier %.0f %.0f", x, y)
}
func (r *recordingSurface) FillText(text string, x, y float64, style TextStyle) {
	r.record("text %q %.0f %.0f %g", text, x, y, style.Size)
}

func (r *recordingSurface) count(op string) int {
	n := 0
	for _, o := range r.ops {
		if o == op {
			n++
		}
	}
	return n
}

func (r *recordingSurface) has(prefix string) bool {
	for _, o := range r.ops {
		if strings.HasPrefix(o, prefix) {
			return true
		}
	}
	return false
}

type recordingSink struct {
	said        []string
	checkpoints int
}

func (s *recordingSink) Say(msg string) { s.said = append(s.said, msg) }
func (s *recordingSink) Checkpoint()    { s.checkpoints++ }

func newTestInterpreter() *Interpreter {
	return NewInterpreter(0, slog.Default())
}

func boolPtr(b bool) *bool { return &b }

func TestExecute_AnnouncesAndCloses(t *testing.T) {
	s := newRecordingSurface(400, 400)
	sink := &recordingSink{}
	plan := domain.Plan{
		Description: "A small circle",
		Commands:    []domain.Command{{Action: "circle"}},
	}

	res, err := newTestInterpreter().Execute(context.Background(), s, plan, "draw a circle", sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"✏️ A small circle", DoneMessage}, sink.said)
	assert.Equal(t, 1, sink.checkpoints)
	require.Len(t, res.Executed, 1)

	c := res.Executed[0]
	assert.Equal(t, 200.0, c.X, "absent x resolves to the midpoint")
	assert.Equal(t, 200.0, c.Y)
	assert.Equal(t, 30.0, c.Radius)
	assert.Equal(t, "#000000", c.Color)
	assert.Equal(t, 3.0, c.LineWidth)
	assert.Equal(t, 0, s.depth, "save and restore must balance")
}

func TestExecute_EmptyPlan(t *testing.T) {
	s := newRecordingSurface(400, 400)
	sink := &recordingSink{}
	plan := domain.DescriptionOnly("I would draw a cat, but I lost my pencil.")

	_, err := newTestInterpreter().Execute(context.Background(), s, plan, "draw a cat", sink)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNothingToDraw))
	assert.Equal(t, []string{"✏️ I would draw a cat, but I lost my pencil."}, sink.said)
	assert.Zero(t, sink.checkpoints)
	assert.Empty(t, s.ops)
}

func TestExecute_TextFilter(t *testing.T) {
	plan := domain.Plan{
		Description: "A friendly greeting",
		Commands:    []domain.Command{{Action: "text", Text: "hello there"}},
	}

	t.Run("dropped without a text request", func(t *testing.T) {
		s := newRecordingSurface(400, 400)
		sink := &recordingSink{}
		res, err := newTestInterpreter().Execute(context.Background(), s, plan, "draw something nice", sink)
		assert.True(t, errors.Is(err, domain.ErrNothingToDraw))
		assert.Equal(t, 1, res.Skipped)
		assert.False(t, s.has("text"))
	})

	t.Run("kept when the user asks for words", func(t *testing.T) {
		s := newRecordingSurface(400, 400)
		sink := &recordingSink{}
		res, err := newTestInterpreter().Execute(context.Background(), s, plan, "write hello there", sink)
		require.NoError(t, err)
		require.Len(t, res.Executed, 1)
		assert.True(t, s.has(`text "hello there" 200 200 20`))
	})
}

func TestExecute_UnknownActionSkipped(t *testing.T) {
	s := newRecordingSurface(400, 400)
	sink := &recordingSink{}
	plan := domain.Plan{Commands: []domain.Command{
		{Action: "spiral"},
		{Action: "line", X1: domain.Num(10), Y1: domain.Num(10), X2: domain.Num(50), Y2: domain.Num(50)},
	}}

	res, err := newTestInterpreter().Execute(context.Background(), s, plan, "", sink)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Executed, 1)
	assert.Equal(t, domain.ActionLine, res.Executed[0].Action)
	assert.Equal(t, []string{DoneMessage}, sink.said)
}

func TestExecute_Cancelled(t *testing.T) {
	s := newRecordingSurface(400, 400)
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := domain.Plan{Description: "Two dots", Commands: []domain.Command{{Action: "circle"}, {Action: "circle"}}}
	res, err := NewInterpreter(DefaultPacing, nil).Execute(ctx, s, plan, "", sink)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, res.Executed)
	assert.Equal(t, 1, sink.checkpoints, "partial drawings are still checkpointed")
	assert.NotContains(t, sink.said, DoneMessage)
}

func TestExecute_CircleClampedInside(t *testing.T) {
	s := newRecordingSurface(400, 400)
	plan := domain.Plan{Commands: []domain.Command{
		{Action: "circle", X: domain.Num(395), Y: domain.Num(5), Radius: domain.Num(30)},
	}}

	res, err := newTestInterpreter().Execute(context.Background(), s, plan, "", &recordingSink{})
	require.NoError(t, err)
	c := res.Executed[0]
	if c.X != 370 || c.Y != 30 {
		t.Errorf("center = (%v, %v), want (370, 30)", c.X, c.Y)
	}
}

func TestExecute_RelativeCoordinates(t *testing.T) {
	s := newRecordingSurface(400, 400)
	plan := domain.Plan{
		CoordinateSystem: domain.CoordinateRelative,
		Commands: []domain.Command{
			{Action: "circle", X: domain.Num(-50), Y: domain.Num(20), Radius: domain.Num(10)},
		},
	}

	res, err := newTestInterpreter().Execute(context.Background(), s, plan, "", &recordingSink{})
	require.NoError(t, err)
	assert.Equal(t, 150.0, res.Executed[0].X)
	assert.Equal(t, 220.0, res.Executed[0].Y)
}

func TestExecute_RectLargeFillVetoed(t *testing.T) {
	s := newRecordingSurface(400, 400)
	plan := domain.Plan{Commands: []domain.Command{
		{Action: "rect", X: domain.Num(0), Y: domain.Num(0), Width: domain.Num(390), Height: domain.Num(390), Fill: true, SnapToExisting: boolPtr(false)},
	}}

	res, err := newTestInterpreter().Execute(context.Background(), s, plan, "", &recordingSink{})
	require.NoError(t, err)
	assert.False(t, res.Executed[0].Filled)
	assert.Zero(t, s.count("fill"))
	assert.Equal(t, 1, s.count("stroke"), "the outline is still drawn")
}

func TestExecute_RectWiderThanCanvas(t *testing.T) {
	s := newRecordingSurface(400, 300)
	plan := domain.Plan{Commands: []domain.Command{
		{Action: "rect", X: domain.Num(120), Y: domain.Num(250), Width: domain.Str("100%"), Height: domain.Num(100), LineWidth: domain.Num(5)},
	}}

	res, err := newTestInterpreter().Execute(context.Background(), s, plan, "", &recordingSink{})
	require.NoError(t, err)
	r := res.Executed[0]
	assert.Equal(t, 0.0, r.X)
	assert.Equal(t, 400.0, r.Width)
	assert.Equal(t, 200.0, r.Y, "y is clamped so the rect stays on canvas")
	assert.Equal(t, 5.0, r.LineWidth)
}

func TestExecute_PathSnapsToInk(t *testing.T) {
	triangle := []domain.Point{
		{domain.Num(180), domain.Num(180)},
		{domain.Num(220), domain.Num(180)},
		{domain.Num(200), domain.Num(220)},
	}

	t.Run("filled path moves toward ink", func(t *testing.T) {
		s := newRecordingSurface(400, 400)
		paintRect(s.RGBA, 230, 190, 261, 221, ink)

		plan := domain.Plan{Commands: []domain.Command{{Action: "path", Points: triangle, Fill: true}}}
		res, err := newTestInterpreter().Execute(context.Background(), s, plan, "", &recordingSink{})
		require.NoError(t, err)

		p := res.Executed[0]
		assert.True(t, p.Snapped)
		assert.True(t, p.Filled)
		assert.Greater(t, p.Points[0][0], 180.0)
		assert.True(t, s.has("close"))
	})

	t.Run("explicit false keeps position", func(t *testing.T) {
		s := newRecordingSurface(400, 400)
		paintRect(s.RGBA, 230, 190, 261, 221, ink)

		plan := domain.Plan{Commands: []domain.Command{{Action: "path", Points: triangle, Fill: true, SnapToExisting: boolPtr(false)}}}
		res, err := newTestInterpreter().Execute(context.Background(), s, plan, "", &recordingSink{})
		require.NoError(t, err)

		p := res.Executed[0]
		assert.False(t, p.Snapped)
		assert.Equal(t, [2]float64{180, 180}, p.Points[0])
	})

	t.Run("unfilled path does not snap by default", func(t *testing.T) {
		s := newRecordingSurface(400, 400)
		paintRect(s.RGBA, 230, 190, 261, 221, ink)

		plan := domain.Plan{Commands: []domain.Command{{Action: "path", Points: triangle}}}
		res, err := newTestInterpreter().Execute(context.Background(), s, plan, "", &recordingSink{})
		require.NoError(t, err)
		assert.False(t, res.Executed[0].Snapped)
		assert.False(t, s.has("close"), "open paths are not closed")
	})
}

func TestExecute_SnapRules(t *testing.T) {
	at := func(v float64) domain.Value { return domain.Num(v) }

	tests := []struct {
		name   string
		cmd    domain.Command
		prompt string
		wantX  float64 // resolved x when the command keeps its position
		snaps  bool
	}{
		{"filled circle snaps by default", domain.Command{Action: "circle", X: at(200), Y: at(200), Radius: at(30), Fill: true}, "", 200, true},
		{"unfilled circle stays", domain.Command{Action: "circle", X: at(200), Y: at(200), Radius: at(30)}, "", 200, false},
		{"unfilled circle snaps when asked", domain.Command{Action: "circle", X: at(200), Y: at(200), Radius: at(30), SnapToExisting: boolPtr(true)}, "", 200, true},
		{"filled circle opted out", domain.Command{Action: "circle", X: at(200), Y: at(200), Radius: at(30), Fill: true, SnapToExisting: boolPtr(false)}, "", 200, false},
		{"filled rect snaps by default", domain.Command{Action: "rect", X: at(180), Y: at(180), Width: at(40), Height: at(40), Fill: true}, "", 180, true},
		{"unfilled rect stays", domain.Command{Action: "rect", X: at(180), Y: at(180), Width: at(40), Height: at(40)}, "", 180, false},
		{"text stays by default", domain.Command{Action: "text", Text: "hi", X: at(200), Y: at(200), Fill: true}, "write hi", 200, false},
		{"text snaps when asked", domain.Command{Action: "text", Text: "hi", X: at(200), Y: at(200), SnapToExisting: boolPtr(true)}, "write hi", 200, true},
		{"line stays by default", domain.Command{Action: "line", X1: at(170), Y1: at(200), X2: at(230), Y2: at(200)}, "", 170, false},
		{"fill does not make a line snap", domain.Command{Action: "line", X1: at(170), Y1: at(200), X2: at(230), Y2: at(200), Fill: true}, "", 170, false},
		{"line snaps when asked", domain.Command{Action: "line", X1: at(170), Y1: at(200), X2: at(230), Y2: at(200), SnapToExisting: boolPtr(true)}, "", 170, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newRecordingSurface(400, 400)
			paintRect(s.RGBA, 230, 190, 261, 221, ink)

			plan := domain.Plan{Commands: []domain.Command{tt.cmd}}
			res, err := newTestInterpreter().Execute(context.Background(), s, plan, tt.prompt, &recordingSink{})
			require.NoError(t, err)
			require.Len(t, res.Executed, 1)

			got := res.Executed[0]
			assert.Equal(t, tt.snaps, got.Snapped)
			if tt.snaps {
				assert.Greater(t, got.X, tt.wantX, "snapping pulls toward the ink on the right")
			} else {
				assert.Equal(t, tt.wantX, got.X)
			}
		})
	}
}

func TestExecute_PathTooShort(t *testing.T) {
	s := newRecordingSurface(400, 400)
	plan := domain.Plan{Commands: []domain.Command{
		{Action: "path", Points: []domain.Point{{domain.Num(1), domain.Num(1)}}},
	}}

	res, err := newTestInterpreter().Execute(context.Background(), s, plan, "", &recordingSink{})
	require.NoError(t, err)
	assert.Empty(t, res.Executed)
	assert.Equal(t, 1, res.Skipped)
	assert.False(t, s.has("stroke"))
}

func TestFontSize(t *testing.T) {
	tests := []struct {
		name string
		v    domain.Value
		want float64
	}{
		{"absent", domain.Value{}, 20},
		{"zero", domain.Num(0), 20},
		{"garbage", domain.Str("huge"), 20},
		{"tiny", domain.Num(2), 10},
		{"numeric string", domain.Str("32"), 32},
		{"oversized", domain.Num(500), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fontSize(tt.v, 400, 400); got != tt.want {
				t.Errorf("fontSize(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestExecute_LineUsesRoundCaps(t *testing.T) {
	s := newRecordingSurface(400, 400)
	plan := domain.Plan{Commands: []domain.Command{
		{Action: "LINE", X1: domain.Num(-10), Y1: domain.Num(20), X2: domain.Num(600), Y2: domain.Num(20), Color: "red", Width: domain.Num(6)},
	}}

	res, err := newTestInterpreter().Execute(context.Background(), s, plan, "", &recordingSink{})
	require.NoError(t, err)

	l := res.Executed[0]
	assert.Equal(t, "red", l.Color)
	assert.Equal(t, 6.0, l.LineWidth)
	assert.GreaterOrEqual(t, l.X, 0.0)
	assert.LessOrEqual(t, l.X2, 400.0)
	assert.True(t, s.has("round-caps"))
}
