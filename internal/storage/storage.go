// Package storage is the optional object storage collaborator. An empty URL
// or false result means "not configured or not stored", never an error.
package storage

import (
	"context"
)

type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, ok bool)
	Exists(ctx context.Context, key string) bool
}

type Disabled struct{}

func (Disabled) Put(context.Context, string, []byte, string) (string, bool) { return "", false }
func (Disabled) Exists(context.Context, string) bool                        { return false }
