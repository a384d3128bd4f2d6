// Package intent classifies chat messages into the actions the assistant
// should take, and tracks drawing offers the assistant has made.
package intent

import (
	"regexp"
	"strings"
)

// Kind is the primary route for a message.
type Kind int

const (
	KindNone Kind = iota
	KindAnalysis
	KindErase
	KindDraw
	KindAffirm
	KindDeny
)

func (k Kind) String() string {
	switch k {
	case KindAnalysis:
		return "analysis"
	case KindErase:
		return "erase"
	case KindDraw:
		return "draw"
	case KindAffirm:
		return "affirm"
	case KindDeny:
		return "deny"
	default:
		return "none"
	}
}

// Intent is the classification of one user message.
type Intent struct {
	Kind Kind

	// AnalysisOnly marks questions about the canvas that must not trigger
	// drawing.
	AnalysisOnly bool
	// NeedsVision asks for a canvas image to go along with the message.
	NeedsVision bool
	// ExplicitDraw is set when the message itself asks for drawing.
	ExplicitDraw bool
	// DrawPrompt is the request synthesized from an accepted offer.
	DrawPrompt string
	// Declined is set when the message turned down a pending offer.
	Declined bool
}

// Classify routes msg. drawingEnabled gates explicit drawing requests;
// offers may be nil when no offer state is kept. A pending offer is
// consumed when msg accepts or declines it.
func Classify(msg string, drawingEnabled bool, offers *OfferTracker) Intent {
	lower := strings.ToLower(msg)
	in := Intent{AnalysisOnly: IsAnalysisOnly(lower)}

	if !in.AnalysisOnly {
		if e, ok := DetectErase(lower); ok && e.EntireCanvas {
			if offers != nil {
				offers.Clear()
			}
			in.Kind = KindErase
			return in
		}
	}

	in.NeedsVision = in.AnalysisOnly || NeedsVision(lower)

	if offers != nil {
		switch prompt, res := offers.Resolve(lower); res {
		case OfferAccepted:
			in.DrawPrompt = prompt
		case OfferDeclined:
			in.Declined = true
		}
	}

	in.ExplicitDraw = !in.AnalysisOnly && drawingEnabled && ShouldTriggerDraw(lower)

	switch {
	case in.AnalysisOnly:
		in.Kind = KindAnalysis
	case in.ExplicitDraw:
		in.Kind = KindDraw
	case in.DrawPrompt != "":
		in.Kind = KindAffirm
	case in.Declined:
		in.Kind = KindDeny
	default:
		in.Kind = KindNone
	}
	return in
}

var visionKeywords = []string{
	"what am i drawing",
	"what did i draw",
	"what is this",
	"what do you see",
	"can you see",
	"look at",
	"analyze",
	"describe",
	"what does this look like",
	"recognize",
	"identify",
	"what shape",
	"what color",
	"read this",
	"what equation",
	"solve this",
	"what number",
	"what letter",
	"what word",
	"on my canvas",
	"on the canvas",
	"in my drawing",
	"draw with me",
}

// NeedsVision reports whether answering msg requires looking at the canvas.
func NeedsVision(msg string) bool {
	return containsAny(strings.ToLower(msg), visionKeywords)
}

var analysisPhrases = []string{
	"what have i drawn",
	"what've i drawn",
	"what did i draw",
	"what am i drawing",
	"what's on my canvas",
	"what is on my canvas",
	"what's on the canvas",
	"what is on the canvas",
	"what is on this canvas",
	"what is on my drawing",
	"what have i been drawing",
	"what do you see on my canvas",
	"describe my canvas",
	"describe my drawing",
}

// IsAnalysisOnly reports whether lower asks what is on the canvas.
func IsAnalysisOnly(lower string) bool {
	return containsAny(lower, analysisPhrases)
}

var drawPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bdraw\b`),
	regexp.MustCompile(`\bsketch\b`),
	regexp.MustCompile(`\billustrate\b`),
	regexp.MustCompile(`\bpaint\b`),
	regexp.MustCompile(`\bfill\b`),
	regexp.MustCompile(`\bfill\s+in`),
	regexp.MustCompile(`\bshade\b`),
	regexp.MustCompile(`\bcolor\b`),
	regexp.MustCompile(`\badd\s+(?:some\s+)?(?:color|colour)`),
	regexp.MustCompile(`\badd\s+.*\b(on|to|onto)\s+the\s+canvas`),
	regexp.MustCompile(`\bput\s+.*\b(on|to|onto)\s+the\s+canvas`),
	regexp.MustCompile(`\bplace\s+.*\b(on|to|onto)\s+the\s+canvas`),
	regexp.MustCompile(`\bmake\s+.*\b(on|to|onto)\s+the\s+canvas`),
	regexp.MustCompile(`\berase\b`),
	regexp.MustCompile(`\bremove\b`),
	regexp.MustCompile(`\bclear\b`),
}

var drawPhrases = []string{
	"draw me",
	"draw a",
	"draw the",
	"sketch me",
	"sketch a",
	"sketch the",
	"illustrate a",
	"paint me",
	"paint a",
	"create a drawing of",
	"can you add",
	"please add",
	"could you add",
	"could you make",
	"can you make",
	"can you make it",
	"fill it",
	"fill this",
	"fill that",
	"make it bigger",
	"make it smaller",
	"adjust it",
	"move it",
	"erase it",
	"erase that",
	"clear it",
	"clean it up",
	"fix it",
	"touch it up",
	"refine it",
	"polish it",
	"can you help with",
	"finish it",
	"finish the",
	"can you complete",
}

// ShouldTriggerDraw reports whether lower asks the assistant to put
// something on the canvas.
func ShouldTriggerDraw(lower string) bool {
	for _, re := range drawPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return containsAny(lower, drawPhrases)
}

var affirmations = []string{
	"yes",
	"yes!",
	"yeah",
	"yep",
	"sure",
	"sure thing",
	"absolutely",
	"of course",
	"definitely",
	"please do",
	"please",
	"go ahead",
	"do it",
	"ok",
	"okay",
	"sounds good",
	"that'd be great",
	"that would be great",
	"please add it",
	"please add that",
}

var negatives = []string{
	"no",
	"no thanks",
	"not yet",
	"maybe later",
	"not right now",
	"don't",
	"do not",
	"don't add",
	"no thank you",
	"please don't",
}

var trailingPunctRe = regexp.MustCompile(`[!.?]+$`)

// IsAffirmative reports whether lower accepts an offer: one of a fixed set
// of replies, alone or followed by more words.
func IsAffirmative(lower string) bool {
	return matchesReply(lower, affirmations)
}

// IsNegative reports whether lower declines an offer.
func IsNegative(lower string) bool {
	return matchesReply(lower, negatives)
}

func matchesReply(lower string, phrases []string) bool {
	s := strings.TrimSpace(lower)
	if s == "" {
		return false
	}
	s = trailingPunctRe.ReplaceAllString(s, "")
	for _, p := range phrases {
		if s == p || strings.HasPrefix(s, p+" ") {
			return true
		}
	}
	return false
}

// EraseIntent is a request to wipe drawing content.
type EraseIntent struct {
	EntireCanvas bool
}

var (
	eraseVerbs       = []string{"erase", "clear", "wipe", "remove", "reset"}
	universalTargets = []string{"everything", "all", "all of it", "all of this", "all of that"}
	canvasTargets    = []string{"my canvas", "the canvas", "canvas", "drawing"}
	politeTriggers   = []string{"can you", "could you", "would you", "will you", "please", "help me", "need you to"}
	eraseCombos      = []string{"wipe it clean", "reset the canvas", "reset my canvas", "clear my board", "clear the board"}
)

var spaceRunRe = regexp.MustCompile(`\s+`)

// DetectErase recognizes requests to clear the whole canvas. A message
// qualifies when it starts with an erase verb and names a target, when it
// politely asks to erase a target, or when it uses a fixed wiping phrase.
func DetectErase(lower string) (EraseIntent, bool) {
	compact := strings.TrimSpace(spaceRunRe.ReplaceAllString(lower, " "))
	if compact == "" {
		return EraseIntent{}, false
	}

	hasTarget := containsAny(compact, universalTargets) || containsAny(compact, canvasTargets)

	if hasTarget {
		for _, verb := range eraseVerbs {
			if strings.HasPrefix(compact, verb+" ") {
				return EraseIntent{EntireCanvas: true}, true
			}
		}
		if containsAny(compact, eraseVerbs) && containsAny(compact, politeTriggers) {
			return EraseIntent{EntireCanvas: true}, true
		}
	}

	if containsAny(compact, eraseCombos) {
		return EraseIntent{EntireCanvas: true}, true
	}
	return EraseIntent{}, false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
