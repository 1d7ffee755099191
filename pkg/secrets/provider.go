package secrets

import "context"

// Provider is a secrets backend holding JSON string maps, e.g.
// {"base_url": "https://www.okx.com", "ws_url": "wss://..."}.
type Provider interface {
	// GetSecret retrieves a secret by name.
	GetSecret(ctx context.Context, key string) (map[string]string, error)

	// ListSecrets returns the names of all secrets whose name matches the given prefix.
	ListSecrets(ctx context.Context, prefix string) ([]string, error)
}
