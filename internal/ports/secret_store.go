package ports

import "context"

// SecretStore keeps small secrets such as the device's daily tracing keys.
// Get reports a missing ref with an error wrapping domain.ErrSecretNotFound.
// List returns every stored ref starting with prefix, sorted.
type SecretStore interface {
	Get(ctx context.Context, ref string) (string, error)
	Put(ctx context.Context, ref string, value string) error
	Delete(ctx context.Context, ref string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
