package objectkey

import (
	"strings"
	"testing"
)

func TestShardedGeneratorShape(t *testing.T) {
	gen := NewShardedGenerator()

	tests := []struct {
		name   string
		prefix string
		parts  int
	}{
		{name: "without prefix", prefix: "", parts: 3},
		{name: "with prefix", prefix: "x", parts: 4},
		{name: "with nested prefix", prefix: "tenant/files", parts: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := gen.GenerateKey(tt.prefix)

			if tt.prefix != "" && !strings.HasPrefix(key, tt.prefix+"/") {
				t.Errorf("expected key to start with %q/, got %s", tt.prefix, key)
			}

			parts := strings.Split(key, "/")
			if len(parts) != tt.parts {
				t.Fatalf("expected %d path parts, got %d (%s)", tt.parts, len(parts), key)
			}

			// The two shard directories are the leading slices of the id.
			id := parts[len(parts)-1]
			if len(id) != 32 {
				t.Errorf("expected 32-char id, got %d (%s)", len(id), id)
			}
			if parts[len(parts)-3] != id[0:2] || parts[len(parts)-2] != id[2:4] {
				t.Errorf("shard dirs do not match id slices: %s", key)
			}
		})
	}
}

func TestShardedGeneratorUniqueness(t *testing.T) {
	gen := NewShardedGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		key := gen.GenerateKey("x")
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}

func TestShardingDistribution(t *testing.T) {
	gen := NewShardedGenerator()

	shardCounts := make(map[string]int)
	for i := 0; i < 1000; i++ {
		key := gen.GenerateKey("")
		shardCounts[strings.Split(key, "/")[0]]++
	}

	// Should have reasonable distribution (not all in one shard)
	if len(shardCounts) < 10 {
		t.Errorf("expected more diverse sharding, got only %d shards", len(shardCounts))
	}
	for shard, count := range shardCounts {
		if count > 200 {
			t.Errorf("shard %s has too many objects (%d), sharding may be poor", shard, count)
		}
	}
}

func TestGeneratorFunc(t *testing.T) {
	gen := GeneratorFunc(func(prefix string) string {
		return prefix + "/fixed"
	})

	if got := gen.GenerateKey("x"); got != "x/fixed" {
		t.Errorf("expected x/fixed, got %s", got)
	}
}
