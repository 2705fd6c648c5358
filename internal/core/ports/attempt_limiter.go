package ports

import "context"

// AttemptLimiter throttles repeated failed sign-ins per identifier.
type AttemptLimiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)
	Fail(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}
