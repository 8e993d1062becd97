package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/swarm/internal/resonance"
	"github.com/ShayCichocki/swarm/internal/stigmergy"
)

// SnapshotVersion is the current snapshot document version.
const SnapshotVersion = 1

// Snapshot is the whole persisted state as one YAML document.
type Snapshot struct {
	Version     int                 `yaml:"version"`
	SavedAt     time.Time           `yaml:"saved_at"`
	Specialists []resonance.Profile `yaml:"specialists"`
	Signals     []stigmergy.Signal  `yaml:"signals"`
}

// ReadSnapshot loads a snapshot from path. A missing file yields an empty
// snapshot.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{Version: SnapshotVersion}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if snap.Version > SnapshotVersion {
		return Snapshot{}, fmt.Errorf("parse snapshot %s: unsupported version %d", path, snap.Version)
	}
	return snap, nil
}

// WriteSnapshot writes snap to path atomically via a temp file and rename.
func WriteSnapshot(path string, snap Snapshot) error {
	snap.Version = SnapshotVersion
	data, err := yaml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// FileStore keeps the whole state in memory and rewrites a YAML snapshot on
// every change. It suits small registries and hand inspection.
type FileStore struct {
	path        string
	specialists map[string]resonance.Profile
	signals     map[signalKey]stigmergy.Signal
	now         func() time.Time
	mu          sync.Mutex
}

type signalKey struct {
	taskID   string
	approach string
}

// OpenFileStore opens or creates a snapshot store at path.
func OpenFileStore(path string) (*FileStore, error) {
	snap, err := ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	fs := &FileStore{
		path:        path,
		specialists: make(map[string]resonance.Profile, len(snap.Specialists)),
		signals:     make(map[signalKey]stigmergy.Signal, len(snap.Signals)),
		now:         time.Now,
	}
	for _, p := range snap.Specialists {
		fs.specialists[p.ID] = p
	}
	for _, s := range snap.Signals {
		fs.signals[signalKey{s.TaskID, s.Approach}] = s
	}
	return fs, nil
}

// Path returns the snapshot file path.
func (fs *FileStore) Path() string {
	return fs.path
}

// SaveProfile stores p unless a newer or equal revision is already held.
func (fs *FileStore) SaveProfile(_ context.Context, p resonance.Profile) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if cur, ok := fs.specialists[p.ID]; ok && cur.Revision >= p.Revision {
		return nil
	}
	fs.specialists[p.ID] = p.Clone()
	return fs.flushLocked()
}

// DeleteProfiles removes the given specialists.
func (fs *FileStore) DeleteProfiles(_ context.Context, ids []string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	changed := false
	for _, id := range ids {
		if _, ok := fs.specialists[id]; ok {
			delete(fs.specialists, id)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return fs.flushLocked()
}

// LoadProfiles returns every stored specialist ordered by id.
func (fs *FileStore) LoadProfiles(_ context.Context) ([]resonance.Profile, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.profilesLocked(), nil
}

// SaveSignal stores one signal.
func (fs *FileStore) SaveSignal(_ context.Context, s stigmergy.Signal) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.signals[signalKey{s.TaskID, s.Approach}] = s
	return fs.flushLocked()
}

// ReplaceSignals swaps the whole signal table.
func (fs *FileStore) ReplaceSignals(_ context.Context, signals []stigmergy.Signal) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.signals = make(map[signalKey]stigmergy.Signal, len(signals))
	for _, s := range signals {
		fs.signals[signalKey{s.TaskID, s.Approach}] = s
	}
	return fs.flushLocked()
}

// LoadSignals returns every stored signal ordered by task and approach.
func (fs *FileStore) LoadSignals(_ context.Context) ([]stigmergy.Signal, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.signalsLocked(), nil
}

// Close is a no-op; every change is already on disk.
func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) flushLocked() error {
	return WriteSnapshot(fs.path, Snapshot{
		SavedAt:     fs.now().UTC(),
		Specialists: fs.profilesLocked(),
		Signals:     fs.signalsLocked(),
	})
}

func (fs *FileStore) profilesLocked() []resonance.Profile {
	out := make([]resonance.Profile, 0, len(fs.specialists))
	for _, p := range fs.specialists {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (fs *FileStore) signalsLocked() []stigmergy.Signal {
	out := make([]stigmergy.Signal, 0, len(fs.signals))
	for _, s := range fs.signals {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaskID != out[j].TaskID {
			return out[i].TaskID < out[j].TaskID
		}
		return out[i].Approach < out[j].Approach
	})
	return out
}
