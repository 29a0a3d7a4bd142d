package adapter

import "context"

// ObjectStorage uploads finished artifacts and returns where they can be fetched.
type ObjectStorage interface {
	UploadFile(ctx context.Context, key, path, contentType string) (string, error)
}
