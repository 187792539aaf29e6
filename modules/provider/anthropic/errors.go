package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/flemzord/recall/internal/provider"
)

// statusOverloaded is Anthropic's non-standard "overloaded" status.
const statusOverloaded = 529

// mapError wraps SDK errors with the provider sentinel the chain uses to
// decide on failover. Context errors pass through untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", provider.ErrTimeout, err)
	}

	var apiErr *sdkanthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}

	switch code := apiErr.StatusCode; {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", provider.ErrRateLimit, apiErr.Error())
	case code == statusOverloaded || code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", provider.ErrProviderDown, apiErr.Error())
	case code == http.StatusBadRequest && isContextLengthError(apiErr.RawJSON()):
		return fmt.Errorf("%w: %s", provider.ErrContextLength, apiErr.Error())
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("anthropic auth error (HTTP %d): %w", code, err)
	default:
		return fmt.Errorf("anthropic error (HTTP %d): %w", code, err)
	}
}

var contextLengthHints = []string{"context length", "too many tokens", "token limit", "prompt is too long"}

// isContextLengthError reports whether a 400 body complains about the
// prompt size. Structured bodies must carry invalid_request_error.
func isContextLengthError(raw string) bool {
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := raw
	if err := json.Unmarshal([]byte(raw), &body); err == nil {
		if body.Error.Type != "invalid_request_error" {
			return false
		}
		msg = body.Error.Message
	}
	for _, hint := range contextLengthHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
