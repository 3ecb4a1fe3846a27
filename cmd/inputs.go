package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/document"
)

// discover expands the input patterns into a list of regular files, keeping
// the pattern order and dropping duplicates. Plain paths are taken as is.
func discover(fsys afero.Fs, patterns []string) ([]string, error) {
	var (
		paths []string
		seen  = make(map[string]struct{})
	)

	add := func(path string) {
		path = filepath.Clean(path)
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if !doublestar.ValidatePathPattern(pattern) {
			return nil, fmt.Errorf("invalid input pattern %q", pattern)
		}

		if !strings.ContainsAny(pattern, "*?[{") {
			if ok, _ := afero.Exists(fsys, pattern); !ok {
				return nil, fmt.Errorf("input %q: %w", pattern, os.ErrNotExist)
			}
			add(pattern)
			continue
		}

		base, _ := doublestar.SplitPattern(pattern)

		var matches []string
		err := afero.Walk(fsys, base, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if info.IsDir() {
				return nil
			}
			ok, err := doublestar.PathMatch(pattern, filepath.ToSlash(path))
			if err != nil {
				return err
			}
			if ok {
				matches = append(matches, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", pattern, err)
		}

		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}

	return paths, nil
}

// loadDocuments reads the files and derives their kinds. Files of an unknown
// kind are skipped with a warning.
func loadDocuments(fsys afero.Fs, paths []string, logger *zap.Logger) ([]*document.Document, error) {
	docs := make([]*document.Document, 0, len(paths))
	for _, path := range paths {
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		kind, err := document.DetectKind(path, data)
		if err != nil {
			logger.Warn("skipping file of unknown kind", zap.String("path", path), zap.Error(err))
			continue
		}

		doc := &document.Document{ID: path, Kind: kind, Data: data}
		logger.Debug("document loaded", zap.String("path", path), zap.String("kind", string(kind)), zap.Int("bytes", doc.Len()))
		docs = append(docs, doc)
	}
	return docs, nil
}
