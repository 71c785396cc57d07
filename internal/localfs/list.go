package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rescale/rescale-space/internal/models"
)

// ErrLimitReached stops a walk once WalkOptions.MaxItems items were produced.
var ErrLimitReached = errors.New("item limit reached")

// ListItems returns the entries of dir as unpositioned item records.
func ListItems(ctx context.Context, dir string, opts ListOptions) ([]models.Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	items := make([]models.Item, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		path := filepath.Join(dir, name)
		if !opts.IncludeHidden && IsHidden(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Skip entries we can't stat (permission issues, races with deletes)
			continue
		}
		items = append(items, itemFromInfo(path, info, opts))
	}
	return items, nil
}

// StatItem builds the record for a single path.
func StatItem(path string, opts ListOptions) (models.Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Item{}, err
	}
	return itemFromInfo(path, info, opts), nil
}

// WalkFunc is called for every item of a walk.
// Return filepath.SkipDir to skip a directory, or any other error to stop walking.
type WalkFunc func(item models.Item) error

// Walk traverses a directory tree depth-first, directories before their
// contents. The root itself is not reported.
func Walk(ctx context.Context, root string, opts WalkOptions, fn WalkFunc) error {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Error accessing path - skip it
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == root {
			return nil
		}

		if !opts.IncludeHidden && IsHidden(path) {
			if d.IsDir() && opts.SkipHiddenDirs {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if opts.MaxItems > 0 && count >= opts.MaxItems {
			return ErrLimitReached
		}
		count++
		return fn(itemFromInfo(path, info, opts.ListOptions))
	})
	if errors.Is(err, ErrLimitReached) {
		return nil
	}
	return err
}

func itemFromInfo(path string, info fs.FileInfo, opts ListOptions) models.Item {
	item := models.Item{
		Path:       path,
		Name:       info.Name(),
		Kind:       models.KindFile,
		SizeBytes:  info.Size(),
		ModifiedAt: info.ModTime(),
	}
	if info.IsDir() {
		item.Kind = models.KindDirectory
		item.SizeBytes = 0
		return item
	}
	item.FileType = DetectType(path, opts.SniffContent)
	return item
}
