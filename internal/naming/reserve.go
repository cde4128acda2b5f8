package naming

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// final paths of the three artifacts of one source file; Audio is empty when
// the audio copy is not persisted
type RenderedNames struct {
	Base  string
	Audio string
	SRT   string
	LRC   string
}

// paths that are set
func (n RenderedNames) Paths() []string {
	var out []string
	for _, p := range []string{n.Audio, n.SRT, n.LRC} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// picks collision-free basenames in a directory. Safe for concurrent use within
// a process; a file lock serialises reservations across processes.
type Reserver struct {
	LockDir string

	mu   sync.Mutex
	dirs map[string]*sync.Mutex
}

func NewReserver() *Reserver {
	return &Reserver{
		LockDir: filepath.Join(os.TempDir(), "libersonora-locks"),
		dirs:    map[string]*sync.Mutex{},
	}
}

func (r *Reserver) dirLock(dir string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dirs == nil {
		r.dirs = map[string]*sync.Mutex{}
	}
	m, ok := r.dirs[dir]
	if !ok {
		m = &sync.Mutex{}
		r.dirs[dir] = m
	}
	return m
}

// Reserve returns the first of base, base-1, base-2, ... for which none of the
// three artifacts exists in dir, and creates the SRT file as a marker so later
// reservations skip it. audioExt includes the dot; "" means no audio copy.
func (r *Reserver) Reserve(ctx context.Context, dir, base, audioExt string) (RenderedNames, error) {
	if base == "" {
		return RenderedNames{}, errors.New("empty basename")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return RenderedNames{}, fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return RenderedNames{}, fmt.Errorf("create output dir: %w", err)
	}

	m := r.dirLock(abs)
	m.Lock()
	defer m.Unlock()

	unlock, err := r.lockFile(ctx, abs)
	if err != nil {
		return RenderedNames{}, err
	}
	defer unlock()

	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return RenderedNames{}, err
		}
		candidate := base
		if n > 0 {
			candidate = base + "-" + strconv.Itoa(n)
		}
		names := namesFor(abs, candidate, audioExt)
		if anyExists(names.Paths()) {
			continue
		}

		marker, err := os.OpenFile(names.SRT, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return RenderedNames{}, fmt.Errorf("reserve %s: %w", names.SRT, err)
		}
		marker.Close()
		return names, nil
	}
}

func (r *Reserver) lockFile(ctx context.Context, dir string) (func(), error) {
	if r.LockDir == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(r.LockDir, 0755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	sum := sha1.Sum([]byte(dir))
	lock := flock.New(filepath.Join(r.LockDir, hex.EncodeToString(sum[:])+".lock"))

	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("lock output dir %s: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock output dir %s: not acquired", dir)
	}
	return func() { _ = lock.Unlock() }, nil
}

func namesFor(dir, base, audioExt string) RenderedNames {
	names := RenderedNames{
		Base: base,
		SRT:  filepath.Join(dir, base+".srt"),
		LRC:  filepath.Join(dir, base+".lrc"),
	}
	if audioExt != "" {
		names.Audio = filepath.Join(dir, base+audioExt)
	}
	return names
}

func anyExists(paths []string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}
