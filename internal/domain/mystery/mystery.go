// Package mystery defines the content entries for the saboteur word-game
// variant. The match engine never touches these; they are edited through the
// REST content tool and stored alongside the match archive.
package mystery

import "errors"

// Mystery is one secret word with its curated clue sets.
type Mystery struct {
	Word      string   `json:"word"`
	GoodClues []string `json:"good_clues"`
	BadClues  []string `json:"bad_clues"`
}

// ErrInvalid is returned when a submitted mystery is missing required fields.
var ErrInvalid = errors.New("mystery: word and at least three good clues are required")

// Validate checks the minimum shape a playable mystery needs.
func (m Mystery) Validate() error {
	if m.Word == "" || len(m.GoodClues) < 3 {
		return ErrInvalid
	}
	return nil
}
