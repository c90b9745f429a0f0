// ABOUTME: Tracks the latest choice card so a typed number can select one of its options
// ABOUTME: Shared by the full-screen chat and the line-mode chat
package tui

import (
	"strconv"

	"github.com/harperreed/deskhand/cards"
	"github.com/harperreed/deskhand/dispatch"
)

// Chooser remembers the most recent contact or document choice card.
type Chooser struct {
	card *cards.Card
}

// Observe records the last choice card in msgs. Any other card clears it.
func (c *Chooser) Observe(msgs []dispatch.ResultMessage) {
	for _, m := range msgs {
		if m.Card == nil {
			continue
		}
		switch m.Card.Type {
		case cards.ContactChoice, cards.DocumentChoice:
			c.card = m.Card
		default:
			c.card = nil
		}
	}
}

// Pick turns a 1-based option number into a selection. A card can be picked from once.
func (c *Chooser) Pick(line string) (dispatch.Selection, bool) {
	if c.card == nil {
		return dispatch.Selection{}, false
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(c.card.Options) {
		return dispatch.Selection{}, false
	}
	sel := dispatch.Selection{
		Kind:           c.card.Type,
		Option:         c.card.Options[n-1],
		OriginalPrompt: c.card.OriginalPrompt,
	}
	c.card = nil
	return sel, true
}
