package persistence

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/lox/pokertable/internal/fileutil"
)

// FileStore archives each hand as one JSON file under dir, written with
// fileutil.WriteFileAtomic so a crash mid-write never leaves a reader
// with a half-written record. Player/ban/abuse state is kept in memory
// only; FileStore exists for a durable-but-dependency-free deployment
// of the hand archive, not as a full database replacement.
type FileStore struct {
	*MemoryStore
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fs := &FileStore{MemoryStore: NewMemoryStore(), dir: dir}
	if err := fs.loadExisting(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) loadExisting() error {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(fs.dir, e.Name()))
		if err != nil {
			return err
		}
		var hand HandRecord
		if err := json.Unmarshal(raw, &hand); err != nil {
			return err
		}
		_ = fs.MemoryStore.SaveHand(context.Background(), hand)
	}
	return nil
}

func (fs *FileStore) SaveHand(ctx context.Context, hand HandRecord) error {
	raw, err := json.MarshalIndent(hand, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(fs.dir, hand.ID+".json")
	if err := fileutil.WriteFileAtomic(path, raw, 0o644); err != nil {
		return err
	}
	return fs.MemoryStore.SaveHand(ctx, hand)
}
