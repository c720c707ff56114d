package model

import (
	"context"
	"io"
)

// Storer persists a downloaded account document under its canonical
// filename and returns the location it was stored at.
type Storer interface {
	Store(ctx context.Context, name string, r io.Reader, size int64) (location string, err error)
}
