package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voicecollect/internal/audio"
	"voicecollect/internal/fileutil"
)

// Local stores clips under a directory that the daemon serves at /audio/.
type Local struct {
	root    string
	baseURL string
	prefix  string
	now     Clock
}

// LocalOption customizes the local backend.
type LocalOption func(*Local)

// WithClock overrides the key date source.
func WithClock(clock Clock) LocalOption {
	return func(l *Local) {
		if clock != nil {
			l.now = clock
		}
	}
}

// NewLocal creates the root directory when missing.
func NewLocal(root, publicBaseURL, prefix string, opts ...LocalOption) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local storage directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	l := &Local{
		root:    root,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		prefix:  prefix,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Local) Name() string { return "local" }

// Root is the directory the daemon exposes read-only.
func (l *Local) Root() string { return l.root }

// Put writes the clip atomically. An existing object with identical content
// is left untouched.
func (l *Local) Put(ctx context.Context, id string, clip audio.NormalizedAudio) (Object, error) {
	if err := validateClip(id, clip); err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, storageError("put", "context done before write", err)
	}
	key := Key(l.prefix, l.now(), id, clip)
	target := filepath.Join(l.root, filepath.FromSlash(key))
	same, err := fileutil.SameContent(target, clip.Size(), clip.Checksum)
	if err != nil {
		return Object{}, storageError("put", "inspect existing object", err)
	}
	if !same {
		if err := fileutil.WriteFileAtomic(target, clip.Data, 0o644); err != nil {
			return Object{}, storageError("put", "write object", err)
		}
	}
	return Object{AudioRef: l.baseURL + "/audio/" + key, StorageID: key}, nil
}

// Health verifies the root is still a directory.
func (l *Local) Health(context.Context) error {
	info, err := os.Stat(l.root)
	if err != nil {
		return storageError("health", "stat storage directory", err)
	}
	if !info.IsDir() {
		return storageError("health", l.root+" is not a directory", nil)
	}
	return nil
}
