package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Drawing actions understood by the interpreter.
const (
	ActionPath   = "path"
	ActionCircle = "circle"
	ActionRect   = "rect"
	ActionText   = "text"
	ActionLine   = "line"
)

// Coordinate systems a plan or command may declare.
const (
	CoordinateAbsolute = "absolute"
	CoordinateRelative = "relative"
)

type valueKind uint8

const (
	valueAbsent valueKind = iota
	valueNumber
	valueString
	valueInvalid
)

// Value is a coordinate or length as emitted by a language model: a number,
// a numeric or percentage string ("50%"), or nothing at all.
type Value struct {
	kind valueKind
	num  float64
	str  string
}

// Num returns a numeric Value.
func Num(f float64) Value { return Value{kind: valueNumber, num: f} }

// Str returns a string Value, e.g. "25%".
func Str(s string) Value { return Value{kind: valueString, str: s} }

// IsZero reports whether the value is absent. Used by omitzero.
func (v Value) IsZero() bool { return v.kind == valueAbsent }

// IsSet reports whether the value was present in the source document.
func (v Value) IsSet() bool { return v.kind != valueAbsent }

// Percent returns the percentage for values like "50%". ok is false for
// anything that is not a string ending in '%' with a finite numeric prefix.
func (v Value) Percent() (p float64, ok bool) {
	if v.kind != valueString {
		return 0, false
	}
	s := strings.TrimSpace(v.str)
	if !strings.HasSuffix(s, "%") {
		return 0, false
	}
	p = parseNumber(s[:len(s)-1])
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}
	return p, true
}

// Float coerces the value to a number. Absent and unparseable values
// return NaN; blank strings return 0.
func (v Value) Float() float64 {
	switch v.kind {
	case valueNumber:
		return v.num
	case valueString:
		return parseNumber(v.str)
	default:
		return math.NaN()
	}
}

// Or returns def when the value is absent, zero, NaN or an empty string.
func (v Value) Or(def float64) Value {
	switch v.kind {
	case valueAbsent:
		return Num(def)
	case valueNumber:
		if v.num == 0 || math.IsNaN(v.num) {
			return Num(def)
		}
	case valueString:
		if v.str == "" {
			return Num(def)
		}
	}
	return v
}

// String renders the value for logs.
func (v Value) String() string {
	switch v.kind {
	case valueNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case valueString:
		return strconv.Quote(v.str)
	case valueInvalid:
		return "invalid"
	default:
		return "absent"
	}
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// UnmarshalJSON accepts numbers, strings, booleans and null. Arrays and
// objects decode to an invalid value that coerces to NaN.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = Value{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Str(s)
	case bytes.Equal(data, []byte("true")):
		*v = Num(1)
	case bytes.Equal(data, []byte("false")):
		*v = Num(0)
	case data[0] == '[' || data[0] == '{':
		*v = Value{kind: valueInvalid}
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return err
		}
		*v = Num(f)
	}
	return nil
}

// MarshalJSON writes the value back in its original form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case valueString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// Point is an [x, y] pair inside a path command.
type Point [2]Value

// Command is one entry of a drawing plan. Only the fields relevant to
// Action are read.
type Command struct {
	Action string `json:"action"`
	Color  string `json:"color,omitempty"`
	// Width is the stroke width, except for rect where it is the rectangle width.
	Width Value `json:"width,omitzero"`
	// LineWidth is the stroke width for rect.
	LineWidth Value `json:"lineWidth,omitzero"`
	Fill      bool  `json:"fill,omitempty"`

	Points []Point `json:"points,omitempty"`

	X      Value `json:"x,omitzero"`
	Y      Value `json:"y,omitzero"`
	Radius Value `json:"radius,omitzero"`
	Height Value `json:"height,omitzero"`

	Text      string `json:"text,omitempty"`
	Size      Value  `json:"size,omitzero"`
	Font      string `json:"font,omitempty"`
	Align     string `json:"align,omitempty"`
	Baseline  string `json:"baseline,omitempty"`
	ForceText bool   `json:"forceText,omitempty"`

	X1 Value `json:"x1,omitzero"`
	Y1 Value `json:"y1,omitzero"`
	X2 Value `json:"x2,omitzero"`
	Y2 Value `json:"y2,omitzero"`

	SnapToExisting   *bool  `json:"snapToExisting,omitempty"`
	MinSamples       Value  `json:"minSamples,omitzero"`
	MaxShift         Value  `json:"maxShift,omitzero"`
	Relative         bool   `json:"relative,omitempty"`
	CoordinateSystem string `json:"coordinateSystem,omitempty"`
}

// IsRelative reports whether the command's coordinates are offsets from
// the canvas center, either by its own flag or the plan's.
func (c Command) IsRelative(plan string) bool {
	return plan == CoordinateRelative || c.Relative || c.CoordinateSystem == CoordinateRelative
}

// Plan is the structured drawing output requested from a language model.
type Plan struct {
	Description      string    `json:"description"`
	Commands         []Command `json:"commands"`
	CoordinateSystem string    `json:"coordinateSystem,omitempty"`
}

// DescriptionOnly builds the fallback plan used when a response carries no
// usable commands.
func DescriptionOnly(text string) Plan {
	return Plan{Description: text, Commands: []Command{}}
}

// ResolvedCommand is a command after coordinate resolution, snapping and
// clamping, in absolute canvas pixels. On the wire each action carries only
// its own geometry, zero values included.
type ResolvedCommand struct {
	Action    string       `json:"action"`
	Color     string       `json:"color"`
	LineWidth float64      `json:"lineWidth"`
	Filled    bool         `json:"filled"`
	Points    [][2]float64 `json:"points"`
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	X2        float64      `json:"x2"`
	Y2        float64      `json:"y2"`
	Radius    float64      `json:"radius"`
	Width     float64      `json:"width"`
	Height    float64      `json:"height"`
	Text      string       `json:"text"`
	Size      float64      `json:"size"`
	Font      string       `json:"font"`
	Align     string       `json:"align"`
	Baseline  string       `json:"baseline"`
	Snapped   bool         `json:"snapped,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c ResolvedCommand) MarshalJSON() ([]byte, error) {
	type wire struct {
		Action    string       `json:"action"`
		Color     string       `json:"color"`
		LineWidth *float64     `json:"lineWidth,omitempty"`
		Filled    bool         `json:"filled"`
		Points    [][2]float64 `json:"points,omitempty"`
		X         *float64     `json:"x,omitempty"`
		Y         *float64     `json:"y,omitempty"`
		X2        *float64     `json:"x2,omitempty"`
		Y2        *float64     `json:"y2,omitempty"`
		Radius    *float64     `json:"radius,omitempty"`
		Width     *float64     `json:"width,omitempty"`
		Height    *float64     `json:"height,omitempty"`
		Text      *string      `json:"text,omitempty"`
		Size      *float64     `json:"size,omitempty"`
		Font      string       `json:"font,omitempty"`
		Align     string       `json:"align,omitempty"`
		Baseline  string       `json:"baseline,omitempty"`
		Snapped   bool         `json:"snapped,omitempty"`
	}
	w := wire{
		Action:  c.Action,
		Color:   c.Color,
		Filled:  c.Filled,
		Snapped: c.Snapped,
	}
	switch c.Action {
	case ActionPath:
		w.LineWidth = &c.LineWidth
		w.Points = c.Points
		if w.Points == nil {
			w.Points = [][2]float64{}
		}
	case ActionCircle:
		w.LineWidth, w.X, w.Y, w.Radius = &c.LineWidth, &c.X, &c.Y, &c.Radius
	case ActionRect:
		w.LineWidth, w.X, w.Y = &c.LineWidth, &c.X, &c.Y
		w.Width, w.Height = &c.Width, &c.Height
	case ActionLine:
		w.LineWidth, w.X, w.Y, w.X2, w.Y2 = &c.LineWidth, &c.X, &c.Y, &c.X2, &c.Y2
	case ActionText:
		w.X, w.Y, w.Text, w.Size = &c.X, &c.Y, &c.Text, &c.Size
		w.Font, w.Align, w.Baseline = c.Font, c.Align, c.Baseline
	}
	return json.Marshal(w)
}
