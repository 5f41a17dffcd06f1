// Package backup writes and restores whole-store snapshots as timestamped
// JSON files. It never interprets the payload beyond checking it decodes;
// consistency comes from the store's Dump/Load running atomically.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ipamkit/ipamkit/internal/domain"
)

const (
	namePrefix = "ipam-backup-"
	nameSuffix = ".json"
)

type Info struct {
	Name      string
	SizeBytes int64
	CreatedAt time.Time
}

type Manager struct {
	store domain.Snapshotter
	dir   string
}

func NewManager(store domain.Snapshotter, dir string) *Manager {
	return &Manager{store: store, dir: dir}
}

func (m *Manager) Create(ctx context.Context) (Info, error) {
	snap, err := m.store.Dump(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("dump store: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return Info{}, err
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Info{}, err
	}

	name := namePrefix + time.Now().UTC().Format("20060102-150405Z") + nameSuffix
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Info{}, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return Info{Name: name, SizeBytes: stat.Size(), CreatedAt: stat.ModTime().UTC()}, nil
}

func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, namePrefix) || !strings.HasSuffix(name, nameSuffix) {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, Info{Name: name, SizeBytes: stat.Size(), CreatedAt: stat.ModTime().UTC()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Manager) Restore(ctx context.Context, name string) error {
	path, err := m.resolve(name)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: backup %q", domain.ErrNotFound, name)
		}
		return err
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: backup %q is not a valid snapshot: %v", domain.ErrInvalidInput, name, err)
	}

	if err := m.store.Load(ctx, snap); err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	return nil
}

// resolve rejects names that would escape the backup directory.
func (m *Manager) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: invalid backup name %q", domain.ErrInvalidInput, name)
	}
	return filepath.Join(m.dir, name), nil
}
