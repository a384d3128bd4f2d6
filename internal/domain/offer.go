package domain

import "time"

// PendingOffer is an assistant proposal to add something to the canvas,
// waiting for the user to accept or decline.
type PendingOffer struct {
	Subject   string    `json:"subject,omitempty"`
	AIMessage string    `json:"aiMessage"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasSubject reports whether a subject was extracted from the offer.
func (o PendingOffer) HasSubject() bool { return o.Subject != "" }
