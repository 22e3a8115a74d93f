package archive

import "context"

// Store receives copies of database snapshot files after a successful flush.
type Store interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}
