package intent

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"workwithme/internal/domain"
)

var offerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`would you like me to add`),
	regexp.MustCompile(`do you want me to add`),
	regexp.MustCompile(`should i add`),
	regexp.MustCompile(`want me to add`),
	regexp.MustCompile(`would you like me to put`),
	regexp.MustCompile(`do you want me to put`),
	regexp.MustCompile(`should i put`),
}

var commitmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`i['’]ll add`),
	regexp.MustCompile(`i will add`),
	regexp.MustCompile(`let me add`),
	regexp.MustCompile(`adding it now`),
	regexp.MustCompile(`i['’]m adding`),
	regexp.MustCompile(`i will put`),
}

var subjectRe = regexp.MustCompile(`(?i)(?:add|put|place)\s+(.*?)\s+(?:onto|to|on)\s+the\s+canvas`)

// ExtractSubject returns what an assistant message proposes to add to
// the canvas, e.g. "a red hat" from "Should I add a red hat to the canvas?".
func ExtractSubject(msg string) string {
	m := subjectRe.FindStringSubmatch(msg)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// BuildDrawPrompt turns an accepted offer into a drawing request.
func BuildDrawPrompt(offer *domain.PendingOffer) string {
	switch {
	case offer == nil:
		return "Please add the update you just described to the canvas."
	case offer.HasSubject():
		return fmt.Sprintf("Please add %s to the canvas exactly as you described.", offer.Subject)
	default:
		return "Please add the update you just mentioned to the canvas."
	}
}

// Resolution is the effect of a user reply on a pending offer.
type Resolution int

const (
	OfferUnresolved Resolution = iota
	OfferAccepted
	OfferDeclined
)

// OfferTracker holds at most one pending drawing offer for a conversation.
// It is safe for concurrent use.
type OfferTracker struct {
	mu      sync.Mutex
	pending *domain.PendingOffer
	now     func() time.Time
}

// NewOfferTracker creates an empty tracker.
func NewOfferTracker() *OfferTracker {
	return &OfferTracker{now: time.Now}
}

// Observe inspects an assistant message. Offer phrasing replaces any
// pending offer; commitment phrasing fills in the subject of a pending
// offer that has none.
func (t *OfferTracker) Observe(aiMessage string) {
	lower := strings.ToLower(aiMessage)

	t.mu.Lock()
	defer t.mu.Unlock()

	if matchAny(lower, offerPatterns) {
		t.pending = &domain.PendingOffer{
			Subject:   ExtractSubject(aiMessage),
			AIMessage: aiMessage,
			CreatedAt: t.now(),
		}
		return
	}

	if matchAny(lower, commitmentPatterns) && t.pending != nil && !t.pending.HasSubject() {
		t.pending.Subject = ExtractSubject(aiMessage)
	}
}

// Resolve applies a user reply to the pending offer. An affirmative reply
// consumes the offer and returns the synthesized drawing prompt; a
// negative one discards it. Anything else leaves the offer in place.
func (t *OfferTracker) Resolve(userMessage string) (string, Resolution) {
	lower := strings.ToLower(userMessage)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == nil {
		return "", OfferUnresolved
	}
	switch {
	case IsAffirmative(lower):
		prompt := BuildDrawPrompt(t.pending)
		t.pending = nil
		return prompt, OfferAccepted
	case IsNegative(lower):
		t.pending = nil
		return "", OfferDeclined
	default:
		return "", OfferUnresolved
	}
}

// Pending returns a copy of the pending offer, if any.
func (t *OfferTracker) Pending() (domain.PendingOffer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return domain.PendingOffer{}, false
	}
	return *t.pending, true
}

// Clear drops any pending offer.
func (t *OfferTracker) Clear() {
	t.mu.Lock()
	t.pending = nil
	t.mu.Unlock()
}

func matchAny(s string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
