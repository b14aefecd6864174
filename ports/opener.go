package ports

import "context"

// URLOpener hands a URL to the platform so the wallet app can take over.
type URLOpener interface {
	CanOpen(ctx context.Context, url string) (bool, error)
	Open(ctx context.Context, url string) error
}
