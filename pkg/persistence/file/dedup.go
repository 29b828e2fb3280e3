package file

import (
	"context"
	"encoding/base64"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DedupLedger implements the claim set with one file per claim. The exclusive
// create flag makes TryClaim atomic for processes sharing one directory tree;
// the mutex only serializes goroutines within this process to keep eviction
// consistent.
type DedupLedger struct {
	root string
	mu   sync.Mutex
}

func NewDedupLedger(root string) *DedupLedger {
	return &DedupLedger{root: root}
}

func (l *DedupLedger) dir() string {
	return filepath.Join(l.root, "dedup")
}

func encodeKey(key string) string {
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// TryClaim inserts a claim file and reports whether this call was the first.
func (l *DedupLedger) TryClaim(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir(), 0o755); err != nil {
		return false, err
	}

	path := filepath.Join(l.dir(), encodeKey(key)+".claim")

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}

		return false, err
	}

	defer file.Close()

	_, err = file.WriteString(time.Now().UTC().Format(time.RFC3339Nano))

	return true, err
}

// Evict removes claims older than the given time.
func (l *DedupLedger) Evict(_ context.Context, olderThan time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := fs.Glob(os.DirFS(l.dir()), "*.claim")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(l.dir(), entry)

		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		if info.ModTime().Before(olderThan) {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}

	return nil
}

// deleteByWorkflow drops every claim belonging to the workflow. Claim keys
// end with the workflow id.
func (l *DedupLedger) deleteByWorkflow(_ context.Context, workflowID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := fs.Glob(os.DirFS(l.dir()), "*.claim")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		decoded, err := base64.URLEncoding.DecodeString(strings.TrimSuffix(entry, ".claim"))
		if err != nil {
			continue
		}

		if strings.HasSuffix(string(decoded), ":"+workflowID) {
			if err := os.Remove(filepath.Join(l.dir(), entry)); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}

	return nil
}
