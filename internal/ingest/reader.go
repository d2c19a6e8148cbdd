// Package ingest turns bank statement exports into transactions.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/runway/internal/model"
)

// ErrUnsupportedFormat is returned for files no reader understands.
var ErrUnsupportedFormat = errors.New("unsupported statement format")

// Result is the outcome of reading one statement.
type Result struct {
	Transactions []model.Transaction
	Skipped      int
}

// Reader parses a statement stream.
type Reader interface {
	Read(ctx context.Context, r io.Reader) (*Result, error)
}

// ForPath picks a reader by file extension.
func ForPath(path string, logger *slog.Logger) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVReader(logger), nil
	case ".ofx", ".qfx":
		return NewOFXReader(logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

// ReadFile opens path and parses it with the reader matching its extension.
func ReadFile(ctx context.Context, path string, logger *slog.Logger) (*Result, error) {
	reader, err := ForPath(path, logger)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // path comes from the user's command line
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	result, err := reader.Read(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return result, nil
}
