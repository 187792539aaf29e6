package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
)

// errUnknownModel reports a configured model the API does not serve.
var errUnknownModel = errors.New("anthropic: unknown model")

// HealthCheck looks the configured model up through the models endpoint.
// It checks credentials and the model name without spending tokens.
func (a *Anthropic) HealthCheck(ctx context.Context) error {
	_, err := a.client.Models.Get(ctx, a.config.Model, sdkanthropic.ModelGetParams{})
	var apiErr *sdkanthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w %q", errUnknownModel, a.config.Model)
	}
	return mapError(err)
}
