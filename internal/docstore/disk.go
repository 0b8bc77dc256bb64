package docstore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Names of the on-disk parts reported by Stats.
const (
	PartDatabase     = "database"
	PartKeywordIndex = "keyword_index"
	PartVectorIndex  = "vector_index"
)

// WithDiskPaths records where each part of the store lives on disk so Stats
// can report its size. Keys are the Part* names.
func WithDiskPaths(paths map[string]string) Option {
	return func(s *Store) { s.diskPaths = paths }
}

// diskUsage sizes every configured part. A part that does not exist yet (the
// vector index before the first shutdown) counts as zero.
func (s *Store) diskUsage() (map[string]int64, int64) {
	if len(s.diskPaths) == 0 {
		return nil, 0
	}
	parts := make(map[string]int64, len(s.diskPaths))
	var total int64
	for name, path := range s.diskPaths {
		n, err := pathSize(path)
		if err != nil {
			s.logger.Warn("disk usage failed", zap.String("part", name), zap.String("path", path), zap.Error(err))
			continue
		}
		parts[name] = n
		total += n
	}
	return parts, total
}

func pathSize(path string) (int64, error) {
	if path == "" {
		return 0, nil
	}
	var total int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	return total, err
}
