package anthropic

import (
	"context"

	"github.com/flemzord/recall/internal/provider"
)

// Complete implements provider.Provider.
func (a *Anthropic) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	msg, err := a.client.Messages.New(ctx, convertRequest(req, &a.config, a.logger))
	if err != nil {
		a.logger.Debug("anthropic completion failed", "error", err)
		return provider.CompletionResponse{}, mapError(err)
	}
	return convertResponse(msg), nil
}
