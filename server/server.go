package server

import "context"

type Server interface {
	Options() Options
	// Run serves until ctx is done and then shuts down gracefully.
	Run(ctx context.Context) error
}
