// Package embedding maps text to fixed-dimension vectors.
package embedding

import "context"

// Provider turns texts into embedding vectors. Implementations must
// return exactly one vector per input, in input order, and must be
// deterministic for a fixed model and input. All vectors from one
// provider configuration share the same dimensionality; an index built
// with one provider is unusable with another.
type Provider interface {
	// Embed generates one vector per text, preserving order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the width of every vector this provider produces.
	Dimension() int

	// Name is a provider+model fingerprint, recorded in the index so a
	// provider swap can be detected at load time.
	Name() string
}
