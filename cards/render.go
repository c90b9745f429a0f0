// ABOUTME: Plain-text rendering of cards for terminal and MCP clients
// ABOUTME: Numbers choice options so a caller can pick one by position
package cards

import (
	"fmt"
	"strings"
)

// Text renders c as plain text. A nil card renders as an empty string.
func (c *Card) Text() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	if c.Title != "" {
		b.WriteString(c.Title)
		b.WriteString("\n")
	}
	for _, d := range c.Details {
		fmt.Fprintf(&b, "  %s\n", d)
	}
	for i, o := range c.Options {
		fmt.Fprintf(&b, "  %d. %s", i+1, o.Label)
		if o.Detail != "" {
			fmt.Fprintf(&b, " (%s)", o.Detail)
		}
		b.WriteString("\n")
	}
	for _, a := range c.Actions {
		if a.Value != "" && a.Kind != ActionConfirm {
			fmt.Fprintf(&b, "  [%s] %s\n", a.Label, a.Value)
			continue
		}
		fmt.Fprintf(&b, "  [%s]\n", a.Label)
	}
	if c.Token != "" {
		fmt.Fprintf(&b, "  confirmation_token: %s\n", c.Token)
	}
	return strings.TrimRight(b.String(), "\n")
}
