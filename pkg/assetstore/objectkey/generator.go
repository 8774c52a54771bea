// Package objectkey generates provider object keys for uploaded content.
package objectkey

import (
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for object key generation strategies.
type Generator interface {
	// GenerateKey creates a globally unique object key under the given
	// prefix. Keys are never derived from content, so concurrent uploads of
	// identical bytes cannot collide.
	GenerateKey(prefix string) string
}

// ShardedGenerator produces keys of the form prefix/aa/bb/<id>, where aa and
// bb are the first two two-character slices of a fresh random id. The shard
// directories fan objects out across the provider's key space and avoid hot
// partitions.
type ShardedGenerator struct{}

// NewShardedGenerator creates a ShardedGenerator.
func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{}
}

func (g *ShardedGenerator) GenerateKey(prefix string) string {
	uid := strings.ReplaceAll(uuid.New().String(), "-", "")

	key := uid[0:2] + "/" + uid[2:4] + "/" + uid
	if prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(prefix string) string

func (f GeneratorFunc) GenerateKey(prefix string) string {
	return f(prefix)
}
