package drawing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"workwithme/internal/domain"
	"workwithme/internal/infra/tracer"
)

// DefaultPacing is the delay before each command so users can watch a plan
// being drawn.
const DefaultPacing = 300 * time.Millisecond

// DoneMessage closes every executed plan.
const DoneMessage = "Done! What do you think? Want to add to it?"

// Shape defaults.
const (
	defaultColor      = "#000000"
	defaultLineWidth  = 3
	defaultRadius     = 30
	defaultRectSide   = 50
	defaultFontSize   = 20
	defaultFont       = "Arial"
	minFontSize       = 10
	maxFontSizeRatio  = 0.25
	defaultTextAlign  = "center"
	defaultTextAnchor = "middle"
)

// Result summarizes one executed plan.
type Result struct {
	Executed []domain.ResolvedCommand
	Skipped  int
}

// Interpreter executes drawing plans against a surface.
type Interpreter struct {
	pacing time.Duration
	logger *slog.Logger
}

// NewInterpreter creates an interpreter. A negative pacing is treated as zero.
func NewInterpreter(pacing time.Duration, logger *slog.Logger) *Interpreter {
	if pacing < 0 {
		pacing = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{pacing: pacing, logger: logger}
}

// Execute draws plan on s. The description is announced first; each
// command is then resolved against the canvas, snapped to nearby ink where
// requested and painted in its own save/restore block. Text commands that
// fail AllowText are dropped up front; when nothing drawable remains
// Execute returns domain.ErrNothingToDraw after the announcement.
//
// Cancelling ctx stops the plan between commands. Whatever was drawn is
// still checkpointed so it can be undone.
func (in *Interpreter) Execute(ctx context.Context, s Surface, plan domain.Plan, prompt string, sink Sink) (*Result, error) {
	ctx, span := tracer.StartSpan(ctx, "drawing.execute",
		trace.WithAttributes(tracer.IntAttr("drawing.commands", len(plan.Commands))),
	)
	defer span.End()

	if desc := strings.TrimSpace(plan.Description); desc != "" {
		sink.Say("✏️ " + desc)
	}
	cmds := make([]domain.Command, 0, len(plan.Commands))
	filtered := 0
	for _, cmd := range plan.Commands {
		if strings.EqualFold(cmd.Action, domain.ActionText) && !AllowText(cmd, prompt, plan.Description) {
			in.logger.Debug("text command filtered", "text", cmd.Text)
			filtered++
			continue
		}
		cmds = append(cmds, cmd)
	}
	if len(cmds) == 0 {
		return &Result{Skipped: filtered}, domain.NewDomainError("Interpreter.Execute", domain.ErrNothingToDraw, "")
	}

	b := s.Bounds()
	res := NewResolver(b.Dx(), b.Dy())
	result := &Result{Skipped: filtered}

	for i, cmd := range cmds {
		if err := in.wait(ctx); err != nil {
			sink.Checkpoint()
			tracer.RecordError(span, err)
			in.logger.Info("drawing cancelled", "executed", len(result.Executed), "remaining", len(cmds)-i)
			return result, domain.WrapOp("Interpreter.Execute", err)
		}

		rc, ok, err := in.paint(s, res, cmd, plan.CoordinateSystem)
		if err != nil {
			in.logger.Warn("drawing command failed", "index", i, "action", cmd.Action, "error", err)
			result.Skipped++
			continue
		}
		if !ok {
			result.Skipped++
			continue
		}
		result.Executed = append(result.Executed, rc)
	}

	sink.Checkpoint()
	sink.Say(DoneMessage)

	span.SetAttributes(
		tracer.IntAttr("drawing.executed", len(result.Executed)),
		tracer.IntAttr("drawing.skipped", result.Skipped),
	)
	tracer.SetOK(span)
	return result, nil
}

func (in *Interpreter) wait(ctx context.Context) error {
	if in.pacing == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(in.pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// paint executes one command. ok is false when the command had nothing
// to draw.
func (in *Interpreter) paint(s Surface, res Resolver, cmd domain.Command, system string) (domain.ResolvedCommand, bool, error) {
	relative := cmd.IsRelative(system)

	s.Save()
	defer s.Restore()

	switch strings.ToLower(cmd.Action) {
	case domain.ActionPath:
		rc, ok := drawPath(s, res, cmd, relative)
		return rc, ok, nil
	case domain.ActionCircle:
		return drawCircle(s, res, cmd, relative), true, nil
	case domain.ActionRect:
		return drawRect(s, res, cmd, relative), true, nil
	case domain.ActionText:
		return drawText(s, res, cmd, relative), true, nil
	case domain.ActionLine:
		return drawLine(s, res, cmd, relative), true, nil
	default:
		return domain.ResolvedCommand{}, false,
			domain.NewDomainError("Interpreter.Execute", domain.ErrUnknownCommand, fmt.Sprintf("action %q", cmd.Action))
	}
}

// wantsSnap applies the shared snapping rule: an explicit false disables
// it, an explicit true enables it, otherwise filled shapes snap.
func wantsSnap(cmd domain.Command) bool {
	if cmd.SnapToExisting == nil {
		return cmd.Fill
	}
	return *cmd.SnapToExisting
}

// snapOptions reads the command's overrides, falling back to the
// shape's own minimum sample count and shift limit.
func snapOptions(cmd domain.Command, minSamples, maxShift float64) SnapOptions {
	return SnapOptions{
		MinSamples: int(hint(cmd.MinSamples, minSamples)),
		MaxShift:   hint(cmd.MaxShift, maxShift),
	}
}

func hint(v domain.Value, def float64) float64 {
	f := v.Or(def).Float()
	if !finite(f) {
		return def
	}
	return f
}

func orDefault(c, def string) string {
	if strings.TrimSpace(c) == "" {
		return def
	}
	return c
}

func strokeWidth(v domain.Value) float64 {
	w := v.Or(defaultLineWidth).Float()
	if !finite(w) || w <= 0 {
		return defaultLineWidth
	}
	return w
}

func drawPath(s Surface, res Resolver, cmd domain.Command, relative bool) (domain.ResolvedCommand, bool) {
	if len(cmd.Points) < 2 {
		return domain.ResolvedCommand{}, false
	}

	pts := make([][2]float64, len(cmd.Points))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	var sumX, sumY float64
	for i, p := range cmd.Points {
		x := res.Coordinate(p[0], AxisX, relative)
		y := res.Coordinate(p[1], AxisY, relative)
		pts[i] = [2]float64{x, y}
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		sumX += x
		sumY += y
	}

	snapped := false
	if wantsSnap(cmd) {
		cx, cy := sumX/float64(len(pts)), sumY/float64(len(pts))
		span := math.Max(maxX-minX, maxY-minY)
		opts := snapOptions(cmd, 20, math.Max(span*1.25, 50))
		if snap, ok := SnapToContent(s, cx, cy, span, opts); ok {
			dx, dy := snap.X-cx, snap.Y-cy
			for i := range pts {
				pts[i][0] += dx
				pts[i][1] += dy
			}
			minX, maxX = minX+dx, maxX+dx
			minY, maxY = minY+dy, maxY+dy
			snapped = true
		}
	}

	color := orDefault(cmd.Color, defaultColor)
	width := strokeWidth(cmd.Width)
	s.SetStrokeColor(color)
	s.SetLineWidth(width)
	s.SetRoundCaps()

	s.BeginPath()
	s.MoveTo(pts[0][0], pts[0][1])
	for _, p := range pts[1:] {
		s.LineTo(p[0], p[1])
	}

	b := s.Bounds()
	filled := cmd.Fill && len(pts) > 2 &&
		!SkipLargeFill(maxX-minX, maxY-minY, float64(b.Dx()), float64(b.Dy()))
	if filled {
		s.SetFillColor(color)
		s.ClosePath()
		s.Fill()
	}
	s.Stroke()

	return domain.ResolvedCommand{
		Action:    domain.ActionPath,
		Color:     color,
		LineWidth: width,
		Filled:    filled,
		Points:    pts,
		Snapped:   snapped,
	}, true
}

func drawCircle(s Surface, res Resolver, cmd domain.Command, relative bool) domain.ResolvedCommand {
	w, h := res.Width, res.Height
	cx := res.Coordinate(cmd.X, AxisX, relative)
	cy := res.Coordinate(cmd.Y, AxisY, relative)
	r := res.Length(cmd.Radius.Or(defaultRadius), math.Min(w, h))

	snapped := false
	if wantsSnap(cmd) {
		opts := snapOptions(cmd, 30, math.Max(r*1.5, 60))
		if snap, ok := SnapToContent(s, cx, cy, r, opts); ok {
			cx, cy = snap.X, snap.Y
			snapped = true
		}
	}
	cx = math.Min(math.Max(r, cx), w-r)
	cy = math.Min(math.Max(r, cy), h-r)

	color := orDefault(cmd.Color, defaultColor)
	width := strokeWidth(cmd.Width)
	s.SetStrokeColor(color)
	s.SetLineWidth(width)

	s.BeginPath()
	s.Arc(cx, cy, r, 0, 2*math.Pi)
	if cmd.Fill {
		s.SetFillColor(color)
		s.Fill()
	}
	s.Stroke()

	return domain.ResolvedCommand{
		Action:    domain.ActionCircle,
		Color:     color,
		LineWidth: width,
		Filled:    cmd.Fill,
		X:         cx,
		Y:         cy,
		Radius:    r,
		Snapped:   snapped,
	}
}

func drawRect(s Surface, res Resolver, cmd domain.Command, relative bool) domain.ResolvedCommand {
	cw, ch := res.Width, res.Height
	x := res.Coordinate(cmd.X, AxisX, relative)
	y := res.Coordinate(cmd.Y, AxisY, relative)
	w := res.Length(cmd.Width.Or(defaultRectSide), cw)
	h := res.Length(cmd.Height.Or(defaultRectSide), ch)

	snapped := false
	if wantsSnap(cmd) {
		cx, cy := x+w/2, y+h/2
		side := math.Max(w, h)
		opts := snapOptions(cmd, 30, math.Max(side*1.2, 60))
		if snap, ok := SnapToContent(s, cx, cy, side, opts); ok {
			x, y = snap.X-w/2, snap.Y-h/2
			snapped = true
		}
	}

	if w >= cw {
		x = 0
	} else {
		x = clamp(x, 0, cw-w)
	}
	if h >= ch {
		y = 0
	} else {
		y = clamp(y, 0, ch-h)
	}

	color := orDefault(cmd.Color, defaultColor)
	width := strokeWidth(cmd.LineWidth)
	s.SetStrokeColor(color)
	s.SetLineWidth(width)

	s.BeginPath()
	s.Rect(x, y, w, h)
	filled := cmd.Fill && !SkipLargeFill(w, h, cw, ch)
	if filled {
		s.SetFillColor(color)
		s.Fill()
	}
	s.Stroke()

	return domain.ResolvedCommand{
		Action:    domain.ActionRect,
		Color:     color,
		LineWidth: width,
		Filled:    filled,
		X:         x,
		Y:         y,
		Width:     w,
		Height:    h,
		Snapped:   snapped,
	}
}

func fontSize(v domain.Value, w, h float64) float64 {
	size := v.Float()
	if !finite(size) || size == 0 {
		size = defaultFontSize
	}
	return math.Min(math.Max(minFontSize, size), math.Min(w, h)*maxFontSizeRatio)
}

func drawText(s Surface, res Resolver, cmd domain.Command, relative bool) domain.ResolvedCommand {
	x := res.Coordinate(cmd.X, AxisX, relative)
	y := res.Coordinate(cmd.Y, AxisY, relative)
	size := fontSize(cmd.Size, res.Width, res.Height)

	snapped := false
	if cmd.SnapToExisting != nil && *cmd.SnapToExisting {
		opts := snapOptions(cmd, 15, math.Max(size*2, 40))
		if snap, ok := SnapToContent(s, x, y, size*1.2, opts); ok {
			x, y = snap.X, snap.Y
			snapped = true
		}
	}
	x, y = res.ClampPoint(x, y)

	style := TextStyle{
		Size:     size,
		Font:     orDefault(cmd.Font, defaultFont),
		Align:    orDefault(cmd.Align, defaultTextAlign),
		Baseline: orDefault(cmd.Baseline, defaultTextAnchor),
	}
	color := orDefault(cmd.Color, defaultColor)
	s.SetFillColor(color)
	s.FillText(cmd.Text, x, y, style)

	return domain.ResolvedCommand{
		Action:   domain.ActionText,
		Color:    color,
		X:        x,
		Y:        y,
		Text:     cmd.Text,
		Size:     size,
		Font:     style.Font,
		Align:    style.Align,
		Baseline: style.Baseline,
		Snapped:  snapped,
	}
}

func drawLine(s Surface, res Resolver, cmd domain.Command, relative bool) domain.ResolvedCommand {
	x1 := res.Coordinate(cmd.X1, AxisX, relative)
	y1 := res.Coordinate(cmd.Y1, AxisY, relative)
	x2 := res.Coordinate(cmd.X2, AxisX, relative)
	y2 := res.Coordinate(cmd.Y2, AxisY, relative)

	snapped := false
	if cmd.SnapToExisting != nil && *cmd.SnapToExisting {
		mx, my := (x1+x2)/2, (y1+y2)/2
		length := math.Hypot(x2-x1, y2-y1)
		opts := snapOptions(cmd, 15, math.Max(length*0.9, 40))
		if snap, ok := SnapToContent(s, mx, my, length/2, opts); ok {
			dx, dy := snap.X-mx, snap.Y-my
			x1, y1, x2, y2 = x1+dx, y1+dy, x2+dx, y2+dy
			snapped = true
		}
	}
	x1, y1 = res.ClampPoint(x1, y1)
	x2, y2 = res.ClampPoint(x2, y2)

	color := orDefault(cmd.Color, defaultColor)
	width := strokeWidth(cmd.Width)
	s.SetStrokeColor(color)
	s.SetLineWidth(width)
	s.SetRoundCaps()

	s.BeginPath()
	s.MoveTo(x1, y1)
	s.LineTo(x2, y2)
	s.Stroke()

	return domain.ResolvedCommand{
		Action:    domain.ActionLine,
		Color:     color,
		LineWidth: width,
		X:         x1,
		Y:         y1,
		X2:        x2,
		Y2:        y2,
		Snapped:   snapped,
	}
}
