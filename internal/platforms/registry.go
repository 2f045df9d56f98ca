package platforms

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/models"
)

// Factory builds the client of one platform.
type Factory func(ctx context.Context) (Client, error)

// Lookup is the read side of the Registry used by the publisher.
type Lookup interface {
	Client(p models.Platform) (Client, error)
}

// Registry maps each platform to its current client. Reload rebuilds one
// entry, e.g. after its application credentials changed.
type Registry struct {
	mu        sync.RWMutex
	factories map[models.Platform]Factory
	clients   map[models.Platform]Client
}

// NewRegistry builds every client from its factory.
func NewRegistry(ctx context.Context, factories map[models.Platform]Factory) (*Registry, error) {
	r := &Registry{
		factories: make(map[models.Platform]Factory, len(factories)),
		clients:   make(map[models.Platform]Client, len(factories)),
	}
	for p, f := range factories {
		r.factories[p] = f
		c, err := f(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s client: %w", p, err)
		}
		r.clients[p] = c
	}
	return r, nil
}

// DefaultFactories wires the three built-in platforms with production
// endpoints.
func DefaultFactories(d Deps) map[models.Platform]Factory {
	return map[models.Platform]Factory{
		models.PlatformLinkedIn: func(context.Context) (Client, error) {
			return NewLinkedIn(d, LinkedInEndpoints()), nil
		},
		models.PlatformFacebook: func(context.Context) (Client, error) {
			return NewFacebook(d, FacebookEndpoints()), nil
		},
		models.PlatformInstagram: func(context.Context) (Client, error) {
			return NewInstagram(d, InstagramEndpoints()), nil
		},
	}
}

func (r *Registry) Client(p models.Platform) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownPlatform, p)
	}
	return c, nil
}

// Reload reconstructs the client of p and swaps it in.
func (r *Registry) Reload(ctx context.Context, p models.Platform) error {
	r.mu.RLock()
	f, ok := r.factories[p]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrUnknownPlatform, p)
	}

	c, err := f(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebuild %s client: %w", p, err)
	}

	r.mu.Lock()
	r.clients[p] = c
	r.mu.Unlock()
	return nil
}

// Platforms lists registered platforms in stable order.
func (r *Registry) Platforms() []models.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Platform, 0, len(r.clients))
	for p := range r.clients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
