// ABOUTME: Error taxonomy for provider resolution and backend failures
// ABOUTME: Classifies Google API and OAuth errors into ProviderError with auth-expiry detection
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/harperreed/deskhand/models"
)

// ErrNotSupported is returned by providers for operations they do not implement.
var ErrNotSupported = errors.New("not implemented")

// ConfigurationError means no usable provider is bound to a capability.
type ConfigurationError struct {
	Capability models.Capability
	ProviderID string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	if e.ProviderID == "" {
		return fmt.Sprintf("no provider configured for %s: %s", e.Capability, e.Reason)
	}
	return fmt.Sprintf("provider %q cannot serve %s: %s", e.ProviderID, e.Capability, e.Reason)
}

// Remediation returns user-facing guidance for fixing the binding.
func (e *ConfigurationError) Remediation() string {
	return fmt.Sprintf("Connect a %s provider in settings (deskhand providers set %s <provider>).", e.Capability, e.Capability)
}

// ProviderError wraps a remote backend failure with enough detail to explain it.
type ProviderError struct {
	ProviderID  string
	Op          string
	Status      int
	Message     string
	AuthExpired bool
	Err         error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s failed", e.ProviderID, e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Classify converts a raw backend error into a ProviderError. Nil stays nil and
// errors that already are ProviderErrors pass through unchanged.
func Classify(providerID, op string, err error) error {
	if err == nil {
		return nil
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	out := &ProviderError{ProviderID: providerID, Op: op, Message: err.Error(), Err: err}

	var apiErr *googleapi.Error
	var retrieveErr *oauth2.RetrieveError
	switch {
	case errors.As(err, &apiErr):
		out.Status = apiErr.Code
		if apiErr.Message != "" {
			out.Message = apiErr.Message
		}
		out.AuthExpired = apiErr.Code == http.StatusUnauthorized
	case errors.As(err, &retrieveErr):
		if retrieveErr.Response != nil {
			out.Status = retrieveErr.Response.StatusCode
		}
		// Refresh failures mean the stored grant is no longer valid
		out.AuthExpired = true
		out.Message = "authorization expired"
	case errors.Is(err, ErrNotSupported):
		out.Message = ErrNotSupported.Error()
	}

	return out
}

// IsAuthExpired reports whether err is a ProviderError caused by expired credentials.
func IsAuthExpired(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.AuthExpired
}
