package ports

import (
	"context"
	"errors"
)

// ErrArtifactNotFound is returned by ArtifactStore.Read when nothing has been saved yet.
var ErrArtifactNotFound = errors.New("artifact not found")

// Port: durable storage for the single serialized predictor artifact.
// Writes replace the whole blob; concurrent writers are last-writer-wins.
type ArtifactStore interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	// Human-readable location used in logs.
	Location() string
}
