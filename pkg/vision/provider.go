// Package vision wraps multimodal model APIs behind a single provider
// interface: submit a prompt plus an optional image, receive free-form text.
// Interpretation of the text is the caller's concern.
package vision

import (
	"context"
	"fmt"
)

// Provider is an interface for multimodal model APIs.
type Provider interface {
	// Complete makes a single model invocation. No retries are performed
	// and no timeout is imposed beyond what ctx carries.
	Complete(ctx context.Context, request Request) (*Response, error)

	// Provider returns the provider name.
	Provider() string
}

// ProviderFactory creates providers from credentials.
type ProviderFactory struct{}

// NewProvider creates a provider for the given credentials.
func (f *ProviderFactory) NewProvider(creds Credentials) (Provider, error) {
	switch creds.Provider {
	case "anthropic":
		return NewAnthropicProvider(creds.APIKey), nil
	case "openai":
		return NewOpenAIProvider(creds.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", creds.Provider)
	}
}
