package repository

import (
	"context"
	"errors"

	"github.com/user/site-mirror/internal/entity"
)

// ErrInvalidURL is returned by a Transport when no request can be built for
// the URL at all. Nothing was sent, so it only affects that one reference.
var ErrInvalidURL = errors.New("invalid request URL")

// Transport defines the contract for the actual network fetch.
type Transport interface {
	// Get fetches url. An error means no response was received at all;
	// non-2xx responses are returned as responses.
	Get(ctx context.Context, url string) (*entity.FetchResponse, error)
}
