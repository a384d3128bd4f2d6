package drawing

import (
	"math"
	"regexp"
	"strings"

	"workwithme/internal/domain"
)

// largeFillRatio is the share of the canvas a single fill may cover.
const largeFillRatio = 0.6

// SkipLargeFill reports whether filling a w×h area on a canvasW×canvasH
// surface would bury too much of it. The outline is still drawn.
func SkipLargeFill(w, h, canvasW, canvasH float64) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	area := math.Min(canvasW, math.Abs(w)) * math.Min(canvasH, math.Abs(h))
	return area > canvasW*canvasH*largeFillRatio
}

var textHints = []string{
	"write", "text", "label", "word", "words", "caption",
	"annotate", "spell", "equation", "solution", "answer", "formula",
}

var (
	mathCharsRe      = regexp.MustCompile(`[0-9=+\-*/^]|[∫Σπ∞√≈≠≤≥]`)
	acknowledgeRe    = regexp.MustCompile(`(?i)^(yes|ok|okay|done|sure|hi|hello|thanks|thank you)$`)
	alphabeticOnlyRe = regexp.MustCompile(`(?i)^[a-z\s]+$`)
)

// AllowText decides whether a text command carries enough content to be
// worth putting on the canvas. prompt and description are the user's
// request and the plan's description.
func AllowText(cmd domain.Command, prompt, description string) bool {
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return false
	}
	if cmd.ForceText {
		return true
	}

	lowerPrompt := strings.ToLower(prompt)
	lowerDesc := strings.ToLower(description)
	for _, hint := range textHints {
		if strings.Contains(lowerPrompt, hint) || strings.Contains(lowerDesc, hint) {
			return true
		}
	}

	if mathCharsRe.MatchString(text) {
		return true
	}
	if acknowledgeRe.MatchString(text) {
		return false
	}
	if len(strings.Fields(text)) <= 3 && alphabeticOnlyRe.MatchString(text) {
		return false
	}
	return true
}
