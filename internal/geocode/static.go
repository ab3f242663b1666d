package geocode

import (
	"context"
	"errors"
	"strings"
)

// StaticResolver resolves city names from a fixed table supplied at startup.
// Matching trims surrounding whitespace and ignores case.
type StaticResolver struct {
	points map[string]Point
}

// NewStaticResolver creates a resolver backed by the given name to point table.
func NewStaticResolver(points map[string]Point) *StaticResolver {
	normalized := make(map[string]Point, len(points))
	for name, p := range points {
		normalized[normalizeCity(name)] = p
	}
	return &StaticResolver{points: normalized}
}

// Resolve looks up the city in the static table.
func (r *StaticResolver) Resolve(_ context.Context, city string) (Point, error) {
	p, ok := r.points[normalizeCity(city)]
	if !ok {
		return Point{}, ErrCityNotFound
	}
	return p, nil
}

func normalizeCity(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ChainResolver tries each resolver in order, returning the first hit.
// A resolver error other than ErrCityNotFound stops the chain.
type ChainResolver struct {
	resolvers []Resolver
}

// NewChainResolver creates a resolver that falls through on ErrCityNotFound.
func NewChainResolver(resolvers ...Resolver) *ChainResolver {
	return &ChainResolver{resolvers: resolvers}
}

// Resolve tries each underlying resolver in order.
func (r *ChainResolver) Resolve(ctx context.Context, city string) (Point, error) {
	for _, resolver := range r.resolvers {
		p, err := resolver.Resolve(ctx, city)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrCityNotFound) {
			return Point{}, err
		}
	}
	return Point{}, ErrCityNotFound
}
