package report

import (
	"context"
	"fmt"
	"strings"
)

// Store archives report artifacts under slash-separated keys.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Write marshals a document and archives it under its canonical key. It
// returns the key the document was stored at.
func Write(ctx context.Context, store Store, doc Document) (string, error) {
	if store == nil {
		return "", fmt.Errorf("report store is required")
	}
	raw, err := doc.Marshal()
	if err != nil {
		return "", err
	}
	key := Key(doc.RunID, doc.Dataset, doc.Event, doc.Suite)
	if err := store.Put(ctx, key, raw); err != nil {
		return "", fmt.Errorf("archive report %s: %w", key, err)
	}
	return key, nil
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is empty")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("key %q must be a relative slash path", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("key %q contains an invalid path segment", key)
		}
	}
	return nil
}
