// Package vote turns a caller's (previous, new) vote pair into the counter
// changes the store applies in one transaction.
package vote

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidChoice is returned for anything other than like, dislike or none.
var ErrInvalidChoice = errors.New("invalid vote choice")

// Choice is a caller's voting state for one message.
type Choice string

const (
	None    Choice = ""
	Like    Choice = "like"
	Dislike Choice = "dislike"
)

// ParseChoice accepts "like", "dislike", and "" or "none" for no vote.
func ParseChoice(s string) (Choice, error) {
	switch s {
	case "", "none":
		return None, nil
	case string(Like):
		return Like, nil
	case string(Dislike):
		return Dislike, nil
	}
	return None, fmt.Errorf("%w: %q", ErrInvalidChoice, s)
}

// Valid reports whether c is one of the three known choices.
func (c Choice) Valid() bool {
	return c == None || c == Like || c == Dislike
}

func (c Choice) String() string {
	if c == None {
		return "none"
	}
	return string(c)
}

// MarshalJSON encodes None as null.
func (c Choice) MarshalJSON() ([]byte, error) {
	if c == None {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON accepts null, "like" and "dislike". The literal "none" is
// not part of the wire format.
func (c *Choice) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = None
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidChoice, data)
	}
	switch Choice(s) {
	case Like, Dislike:
		*c = Choice(s)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidChoice, s)
}

// Step is the change to one counter: Retract is taken off first, clamped at
// zero, then Cast is added.
type Step struct {
	Retract int
	Cast    int
}

// Delta is the combined change to a message's like and dislike counters.
type Delta struct {
	Likes    Step
	Dislikes Step
}

// IsZero reports whether the delta touches no counter at all.
func (d Delta) IsZero() bool {
	return d == Delta{}
}

// Reconcile retracts the previous vote and casts the new one. Identical
// choices still retract and recast, so repeating a vote never accumulates.
func Reconcile(prev, next Choice) (Delta, error) {
	if !prev.Valid() {
		return Delta{}, fmt.Errorf("%w: prev %q", ErrInvalidChoice, string(prev))
	}
	if !next.Valid() {
		return Delta{}, fmt.Errorf("%w: vote %q", ErrInvalidChoice, string(next))
	}

	var d Delta
	switch prev {
	case Like:
		d.Likes.Retract = 1
	case Dislike:
		d.Dislikes.Retract = 1
	}
	switch next {
	case Like:
		d.Likes.Cast = 1
	case Dislike:
		d.Dislikes.Cast = 1
	}
	return d, nil
}
