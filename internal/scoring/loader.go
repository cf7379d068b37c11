package scoring

import (
	"context"
	"fmt"
)

// BlobReader reads a named object, e.g. from local disk or S3.
type BlobReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// Load reads and validates the rule table stored under key.
func Load(ctx context.Context, src BlobReader, key string) (RuleTable, error) {
	data, err := src.Read(ctx, key)
	if err != nil {
		return RuleTable{}, fmt.Errorf("read rule table %s: %w", key, err)
	}
	return ParseRules(data)
}
