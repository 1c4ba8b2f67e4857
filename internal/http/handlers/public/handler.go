package public

import "github.com/pinmart/pinmart/internal/provider"

// Handler serves the buyer-facing API.
type Handler struct {
	*provider.Container
}

// New creates the public handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
