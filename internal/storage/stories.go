package storage

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jwebster45206/novel-engine/pkg/story"
)

// storyDir is a filesystem-backed story document library shared by both
// storage backends. Documents are JSON files under <dataDir>/stories, in any
// of the shapes the normalizer accepts.
type storyDir struct {
	dataDir string
	logger  *slog.Logger
}

func newStoryDir(dataDir string, logger *slog.Logger) *storyDir {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &storyDir{dataDir: dataDir, logger: logger}
}

// List returns the story filenames available for playback, skipping files
// that do not normalize.
func (d *storyDir) List(ctx context.Context) ([]string, error) {
	dir := filepath.Join(d.dataDir, "stories")
	var names []string

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			d.logger.Warn("Failed to read story file", "path", path, "error", err)
			return nil
		}
		if _, err := story.Normalize(raw); err != nil {
			d.logger.Warn("Skipping malformed story file", "path", path, "error", err)
			return nil
		}

		names = append(names, filepath.Base(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// Get reads and normalizes one story document by filename.
func (d *storyDir) Get(ctx context.Context, filename string) (*story.Graph, error) {
	if filepath.Base(filename) != filename || strings.HasPrefix(filename, ".") {
		return nil, fmt.Errorf("invalid story filename: %s", filename)
	}

	path := filepath.Join(d.dataDir, "stories", filename)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("story not found: %s", filename)
		}
		return nil, fmt.Errorf("failed to read story file: %w", err)
	}

	graph, err := story.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("story %s: %w", filename, err)
	}
	return graph, nil
}
