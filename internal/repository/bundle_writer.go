package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"game-builder/internal/domain"

	"go.uber.org/zap"
)

var _ BundleWriter = (*DirBundleWriter)(nil)

// DirBundleWriter writes bundles into a fixed directory, overwriting files
// from previous runs.
type DirBundleWriter struct {
	dir    string
	logger *zap.Logger
}

// NewDirBundleWriter returns a writer for dir.
func NewDirBundleWriter(dir string, logger *zap.Logger) *DirBundleWriter {
	return &DirBundleWriter{dir: dir, logger: logger.Named("BundleWriter")}
}

// WriteBundle implements BundleWriter.
func (w *DirBundleWriter) WriteBundle(ctx context.Context, bundle domain.ArtifactBundle) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", domain.ErrPersistence, w.dir, err)
	}

	paths := make([]string, 0, len(domain.BundleFiles))
	for _, name := range domain.BundleFiles {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := filepath.Join(w.dir, name)
		if err := os.WriteFile(path, []byte(bundle[name]), 0o644); err != nil {
			w.logger.Error("Failed to write bundle file", zap.String("path", path), zap.Error(err))
			return paths, fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, path, err)
		}
		w.logger.Debug("Bundle file written", zap.String("path", path), zap.Int("bytes", len(bundle[name])))
		paths = append(paths, path)
	}
	return paths, nil
}
