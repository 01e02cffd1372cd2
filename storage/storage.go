package storage

import "context"

// ObjectStore removes uploaded material files once their rows are purged.
type ObjectStore interface {
	Remove(ctx context.Context, key string) error
}

// NopStore is used when no object storage is configured.
type NopStore struct{}

func (NopStore) Remove(context.Context, string) error { return nil }
