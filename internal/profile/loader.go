package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Loader reads the raw bytes of a profile source.
type Loader interface {
	Load(ctx context.Context, source string) ([]byte, error)
}

// ErrUnsupportedSource is returned by AutoLoader for sources it cannot route.
var ErrUnsupportedSource = errors.New("unsupported profile source")

// FileLoader reads a local file.
type FileLoader struct{}

// Load reads the file at source.
func (FileLoader) Load(ctx context.Context, source string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}
	return data, nil
}

// StringLoader treats the source itself as the document.
type StringLoader struct{}

// Load returns source as bytes.
func (StringLoader) Load(ctx context.Context, source string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(source), nil
}

// AutoLoader routes s3:// URLs to S3 and everything else to the local
// filesystem. S3 is optional; without it s3:// sources fail.
type AutoLoader struct {
	File Loader
	S3   Loader
}

// Load dispatches source to the matching loader.
func (a AutoLoader) Load(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, s3Scheme) {
		if a.S3 == nil {
			return nil, fmt.Errorf("%w: %s (no S3 client configured)", ErrUnsupportedSource, source)
		}
		return a.S3.Load(ctx, source)
	}
	if _, err := os.Stat(source); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedSource, source, err)
	}
	file := a.File
	if file == nil {
		file = FileLoader{}
	}
	return file.Load(ctx, source)
}
