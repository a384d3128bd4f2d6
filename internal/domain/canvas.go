package domain

import "time"

// CanvasStats is a cheap summary of how much of the canvas is drawn on.
type CanvasStats struct {
	CoveragePercent float64 `json:"coverage"`
	ColorCount      int     `json:"colorCount"`
	DrawnPixels     int     `json:"drawnPixels"`
}

// CanvasSnapshot is a client-supplied image of the canvas.
type CanvasSnapshot struct {
	DataURL   string    `json:"imageData"`
	Timestamp time.Time `json:"timestamp"`
}
