package usecase

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"workwithme/internal/domain"
)

// Route is the offline response chosen for a chat message.
type Route int

const (
	RouteGeneral Route = iota
	RouteMath
	RouteHelp
	RouteDraw
	RouteColor
	RouteImprove
	RouteWhatDrew
)

func (r Route) String() string {
	switch r {
	case RouteMath:
		return "math"
	case RouteHelp:
		return "help"
	case RouteDraw:
		return "draw"
	case RouteColor:
		return "color"
	case RouteImprove:
		return "improve"
	case RouteWhatDrew:
		return "what_drew"
	default:
		return "general"
	}
}

// Heuristic answers without a language model: keyword routing, canned
// replies and coverage-based feedback.
type Heuristic struct {
	pick func(n int) int
}

// NewHeuristic creates a responder. pick returns a random index in [0, n);
// nil uses math/rand.
func NewHeuristic(pick func(n int) int) *Heuristic {
	if pick == nil {
		pick = rand.IntN
	}
	return &Heuristic{pick: pick}
}

func (h *Heuristic) choose(options []string) string {
	return options[h.pick(len(options))]
}

// Route picks the response route for msg. Drawing requests only route to
// RouteDraw when drawingEnabled.
func (h *Heuristic) Route(msg string, drawingEnabled bool) Route {
	lower := strings.ToLower(msg)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("math", "equation", "solve"):
		return RouteMath
	case has("help", "how"):
		return RouteHelp
	case has("draw", "show", "make") && drawingEnabled:
		return RouteDraw
	case has("color", "colour"):
		return RouteColor
	case has("improve", "better", "tip"):
		return RouteImprove
	case has("what") && has("drew", "draw"):
		return RouteWhatDrew
	default:
		return RouteGeneral
	}
}

// MathHelp lists what the assistant can do with math.
const MathHelp = `I can help with math! Here are some things I can do:

• Solve equations step by step
• Draw graphs and diagrams
• Visualize geometric concepts
• Show working for calculations

Try drawing the equation on the canvas, and I'll help you solve it! For example:
- Draw "2x + 5 = 15" and I'll guide you through solving it
- Sketch a triangle and I can help with angles and sides
- Draw a graph and I'll help analyze it`

// HelpText explains the app.
const HelpText = `Here's how to use the app:

**Tools:**
• Pen - Draw freehand lines
• Eraser - Remove parts of your drawing
• Fill - Fill enclosed areas with color
• Line - Draw straight lines
• Circle - Draw circles

**Tips:**
• Adjust brush size for different effects
• Use preset colors for quick access
• I'm watching your canvas and will offer real-time feedback
• Ask me to draw something and I can demonstrate

What would you like to create?`

// DrawIntro precedes a canned drawing.
const DrawIntro = "I'd love to draw with you! Let me add something to the canvas..."

// ColorAdvice returns color theory tips mentioning the current brush color.
func (h *Heuristic) ColorAdvice(currentColor string) string {
	return fmt.Sprintf(`Here are some color theory tips:

• **Complementary colors** (opposite on color wheel) create vibrant contrast
• **Analogous colors** (next to each other) create harmony
• Use lighter colors for highlights
• Darker colors work well for shadows and depth

Current color: %s

Try experimenting with the color picker or preset colors!`, currentColor)
}

var improvementTips = []string{
	"**Composition tip:** Try using the rule of thirds - divide your canvas into 9 sections and place focal points at intersections.",
	"**Technique tip:** Vary your brush sizes to create depth. Use larger brushes for background and smaller ones for details.",
	"**Color tip:** Start with a light sketch, then gradually build up darker colors for better control.",
	"**Practice tip:** Try drawing basic shapes first (circles, squares, triangles) to warm up your hand.",
}

// ImprovementTip returns a random drawing tip.
func (h *Heuristic) ImprovementTip() string { return h.choose(improvementTips) }

var generalReplies = []string{
	"That's interesting! Tell me more about what you'd like to create.",
	"I'm here to help! Would you like some drawing tips or shall we work on something specific?",
	"Great question! Feel free to start drawing and I'll provide feedback as you go.",
	"I'm analyzing your canvas. What would you like to focus on?",
}

// General returns a random open-ended reply.
func (h *Heuristic) General() string { return h.choose(generalReplies) }

// AnalysisSummary describes the canvas from its statistics.
func (h *Heuristic) AnalysisSummary(stats domain.CanvasStats) string {
	if stats.CoveragePercent < 0.5 {
		return "I don't see much on the canvas yet! Start drawing and I'll help you analyze it. 🎨"
	}

	var b strings.Builder
	b.WriteString("Let me analyze your drawing! 🔍\n\n")

	switch c := stats.CoveragePercent; {
	case c < 5:
		b.WriteString("• You have a light sketch started\n")
	case c < 15:
		b.WriteString("• Your drawing is taking shape nicely\n")
	case c < 30:
		b.WriteString("• You have a substantial piece developing\n")
	default:
		b.WriteString("• This is a detailed, well-filled composition\n")
	}

	switch n := stats.ColorCount; {
	case n == 1:
		b.WriteString("• Using a single color - great for focused studies\n")
	case n == 2:
		b.WriteString("• Using 2 colors - nice minimal palette\n")
	case n <= 4:
		fmt.Fprintf(&b, "• Using %d colors - good variety without overwhelming\n", n)
	default:
		fmt.Fprintf(&b, "• Using %d colors - vibrant and diverse!\n", n)
	}

	b.WriteString("\nKeep going, or ask me for specific help! 🌟")
	return b.String()
}

// DemoFeedback returns progress feedback for a coverage tier. feedbackCount
// includes the current round; heavily covered canvases stop getting
// feedback after eight rounds. ok is false when nothing should be said.
func (h *Heuristic) DemoFeedback(stats domain.CanvasStats, feedbackCount int) (string, bool) {
	coverage, colors := stats.CoveragePercent, stats.ColorCount

	switch {
	case coverage < 3:
		return h.choose([]string{
			"Nice start! I see you're sketching something. 🎨",
			"Interesting! What are you planning to create?",
			"Good technique! Your strokes look confident.",
			"I'm watching! Keep going, this looks promising.",
		}), true
	case coverage < 8:
		palette := "Looking good! Have you considered adding more colors?"
		if colors > 2 {
			palette = "Great use of colors! The variety really adds depth."
		}
		return h.choose([]string{
			palette,
			"Your composition is taking shape nicely!",
			"I can see your vision coming together! 🖌️",
			"Nice work! The proportions look balanced.",
		}), true
	case coverage < 20:
		palette := "Your drawing has great structure. Maybe try experimenting with more colors?"
		if colors > 3 {
			palette = "Beautiful color palette! You have a good eye for color harmony."
		}
		return h.choose([]string{
			"This is really coming along! Want me to help with anything specific?",
			palette,
			"Impressive! Are you working on homework or just creating art?",
			"I'm loving this! The details are really emerging.",
		}), true
	case coverage < 40 && feedbackCount < 8:
		return h.choose([]string{
			"Wow! This is getting detailed. You're doing great! 🌟",
			"Your artwork is really filling out beautifully!",
			"I can see you're putting a lot of thought into this. Keep it up!",
			"This is looking fantastic! Need any suggestions or help?",
		}), true
	default:
		return "", false
	}
}

var tips = []string{
	"💡 Tip: Try varying your brush sizes for more dynamic artwork!",
	"🎨 Looking creative! Want me to suggest some color combinations?",
	"✨ Your art is developing nicely! Need help with anything?",
	"🖌️ Pro tip: Lighter colors first, then add darker details!",
	"🌟 You're doing great! Want me to draw something to inspire you?",
	"🎯 Need help with proportions or perspective? Just ask!",
}

// Tip returns a random unsolicited tip.
func (h *Heuristic) Tip() string { return h.choose(tips) }
