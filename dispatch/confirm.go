// ABOUTME: Confirmation policies for destructive tools and the per-session token store
// ABOUTME: Explicit mode parks a destructive call until it is re-issued with its one-time token
package dispatch

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConfirmationPolicy decides whether destructive tools need an explicit token.
type ConfirmationPolicy int

const (
	// ConfirmByConvention trusts the model to have confirmed with the user.
	ConfirmByConvention ConfirmationPolicy = iota
	// ConfirmExplicit requires a confirmation_token issued by a previous dispatch.
	ConfirmExplicit
)

// TokenArg is the argument carrying a confirmation token.
const TokenArg = "confirmation_token"

// DefaultConfirmationTTL bounds how long a pending confirmation stays valid.
const DefaultConfirmationTTL = 10 * time.Minute

// ParsePolicy maps a config string to a policy. Unknown values mean convention.
func ParsePolicy(s string) ConfirmationPolicy {
	if s == "explicit" {
		return ConfirmExplicit
	}
	return ConfirmByConvention
}

func (p ConfirmationPolicy) String() string {
	if p == ConfirmExplicit {
		return "explicit"
	}
	return "convention"
}

type pending struct {
	tool    string
	args    string
	expires time.Time
}

// Confirmations holds one session's pending destructive calls.
type Confirmations struct {
	mu    sync.Mutex
	items map[string]pending
	ttl   time.Duration
	now   func() time.Time
}

// NewConfirmations creates an empty store.
func NewConfirmations() *Confirmations {
	return &Confirmations{items: map[string]pending{}, ttl: DefaultConfirmationTTL, now: time.Now}
}

func argsKey(args map[string]any) string {
	clean := make(map[string]any, len(args))
	for k, v := range args {
		if k != TokenArg {
			clean[k] = v
		}
	}
	// encoding/json sorts map keys
	b, _ := json.Marshal(clean)
	return string(b)
}

// Issue parks a call and returns its token.
func (c *Confirmations) Issue(tool string, args map[string]any) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for tok, p := range c.items {
		if now.After(p.expires) {
			delete(c.items, tok)
		}
	}

	token := uuid.NewString()
	c.items[token] = pending{tool: tool, args: argsKey(args), expires: now.Add(c.ttl)}
	return token
}

// Redeem consumes token if it was issued for this exact call.
func (c *Confirmations) Redeem(token, tool string, args map[string]any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.items[token]
	if !ok {
		return false
	}
	if c.now().After(p.expires) {
		delete(c.items, token)
		return false
	}
	if p.tool != tool || p.args != argsKey(args) {
		return false
	}
	delete(c.items, token)
	return true
}

func (c *Confirmations) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
