package blobstore_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"voicecollect/internal/audio"
	"voicecollect/internal/blobstore"
	"voicecollect/internal/fileutil"
	"voicecollect/internal/logging"
	"voicecollect/internal/services"
	"voicecollect/internal/testsupport"
)

func clip(data string) audio.NormalizedAudio {
	return audio.NormalizedAudio{
		Data:        []byte(data),
		ContentType: "audio/wav",
		Extension:   "wav",
		Checksum:    fileutil.SHA256Hex([]byte(data)),
	}
}

func fixedClock() time.Time {
	return time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)
}

const subID = "7d8f2c1e-5b7a-4c2e-9f10-3a6b9e0d4c21"

func TestKey(t *testing.T) {
	c := clip("abc")
	got := blobstore.Key("/voice/", fixedClock(), subID, c)
	want := "voice/2026/03/" + subID + ".wav"
	if got != want {
		t.Fatalf("Key = %q, want %q", got, want)
	}
	c.Extension = ""
	if got := blobstore.Key("", fixedClock(), subID, c); got != "2026/03/"+subID+".bin" {
		t.Fatalf("unexpected key without prefix/extension: %q", got)
	}
}

func TestLocalPutKeepsIdenticalContentApart(t *testing.T) {
	root := t.TempDir()
	store, err := blobstore.NewLocal(root, "", "voice", blobstore.WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	c := clip("same-bytes")
	first, err := store.Put(context.Background(), "sub-a", c)
	if err != nil {
		t.Fatalf("first Put: %v", err)
	}
	second, err := store.Put(context.Background(), "sub-b", c)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if first.StorageID == second.StorageID || first.AudioRef == second.AudioRef {
		t.Fatalf("distinct submissions share an object: %+v %+v", first, second)
	}
	for _, obj := range []blobstore.Object{first, second} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(obj.StorageID))); err != nil {
			t.Fatalf("object %s missing: %v", obj.StorageID, err)
		}
	}
}

func TestPutRejectsMalformedID(t *testing.T) {
	store, err := blobstore.NewLocal(t.TempDir(), "", "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	for _, id := range []string{"", "  ", "../escape", "a/b"} {
		if _, err := store.Put(context.Background(), id, clip("x")); !errors.Is(err, services.ErrStorageFailed) {
			t.Fatalf("id %q: expected ErrStorageFailed, got %v", id, err)
		}
	}
}

func TestLocalPutWritesAndIsIdempotent(t *testing.T) {
	root := t.TempDir()
	store, err := blobstore.NewLocal(root, "http://collector.test/", "voice", blobstore.WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	c := clip("pcm-bytes")
	obj, err := store.Put(context.Background(), subID, c)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	wantKey := "voice/2026/03/" + subID + ".wav"
	if obj.StorageID != wantKey {
		t.Fatalf("StorageID = %q, want %q", obj.StorageID, wantKey)
	}
	if obj.AudioRef != "http://collector.test/audio/"+wantKey {
		t.Fatalf("unexpected AudioRef %q", obj.AudioRef)
	}
	target := filepath.Join(root, filepath.FromSlash(wantKey))
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "pcm-bytes" {
		t.Fatalf("stored object mismatch: %q %v", data, err)
	}
	before, _ := os.Stat(target)

	again, err := store.Put(context.Background(), subID, c)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if again != obj {
		t.Fatalf("second put returned %+v, want %+v", again, obj)
	}
	after, _ := os.Stat(target)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Fatal("identical content should not be rewritten")
	}
	if err := store.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestLocalPutRejectsEmptyClip(t *testing.T) {
	store, err := blobstore.NewLocal(t.TempDir(), "", "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	_, err = store.Put(context.Background(), subID, audio.NormalizedAudio{})
	if !errors.Is(err, services.ErrStorageFailed) {
		t.Fatalf("expected ErrStorageFailed, got %v", err)
	}
}

type flakyStore struct {
	mu       sync.Mutex
	failures int
	calls    int
	err      error
}

func (f *flakyStore) Put(context.Context, string, audio.NormalizedAudio) (blobstore.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return blobstore.Object{}, f.err
	}
	return blobstore.Object{AudioRef: "ref", StorageID: "key"}, nil
}

func (f *flakyStore) Health(context.Context) error { return nil }
func (f *flakyStore) Name() string                 { return "flaky" }

func TestWithRetry(t *testing.T) {
	transient := services.Wrap(services.ErrStorageFailed, "test", "put", "timeout", nil)

	t.Run("recovers", func(t *testing.T) {
		inner := &flakyStore{failures: 2, err: transient}
		store := blobstore.WithRetry(inner, 3, time.Millisecond, 2*time.Millisecond, logging.NewNop())
		obj, err := store.Put(context.Background(), subID, clip("x"))
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if obj.StorageID != "key" || inner.calls != 3 {
			t.Fatalf("unexpected result %+v after %d calls", obj, inner.calls)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		inner := &flakyStore{failures: 10, err: transient}
		store := blobstore.WithRetry(inner, 3, time.Millisecond, time.Millisecond, logging.NewNop())
		_, err := store.Put(context.Background(), subID, clip("x"))
		if !errors.Is(err, services.ErrStorageFailed) {
			t.Fatalf("expected ErrStorageFailed, got %v", err)
		}
		if inner.calls != 3 {
			t.Fatalf("expected 3 attempts, got %d", inner.calls)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		inner := &flakyStore{failures: 10, err: transient}
		store := blobstore.WithRetry(inner, 5, time.Hour, time.Hour, logging.NewNop())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := store.Put(ctx, subID, clip("x"))
		if !errors.Is(err, services.ErrStorageFailed) || !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected storage failure with deadline, got %v", err)
		}
	})
}

type fakeS3 struct {
	objects map[string][]byte
	putErr  error
	puts    int
}

func (f *fakeS3) PutObject(_ context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.puts++
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[bucket+"/"+key] = buf.Bytes()
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (f *fakeS3) StatObject(_ context.Context, bucket, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeS3) BucketExists(_ context.Context, bucket string) (bool, error) {
	return bucket == "clips", nil
}

func TestS3PutUploadsOnce(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{}}
	store := blobstore.NewS3WithAPI(api, "clips", "https://cdn.example.org/clips/", "voice")
	c := clip("s3-bytes")

	obj, err := store.Put(context.Background(), subID, c)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(obj.StorageID, "voice/") || !strings.HasSuffix(obj.StorageID, subID+".wav") {
		t.Fatalf("unexpected key %q", obj.StorageID)
	}
	if obj.AudioRef != "https://cdn.example.org/clips/"+obj.StorageID {
		t.Fatalf("unexpected AudioRef %q", obj.AudioRef)
	}
	if _, err := store.Put(context.Background(), subID, c); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if api.puts != 1 {
		t.Fatalf("expected a single upload, got %d", api.puts)
	}
	if err := store.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestS3AccessDeniedIsNotRetried(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{}, putErr: minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}}
	store := blobstore.WithRetry(blobstore.NewS3WithAPI(api, "clips", "https://cdn", ""), 4, time.Millisecond, time.Millisecond, logging.NewNop())
	_, err := store.Put(context.Background(), subID, clip("x"))
	if !errors.Is(err, services.ErrStorageFailed) {
		t.Fatalf("expected ErrStorageFailed, got %v", err)
	}
	if api.puts != 1 {
		t.Fatalf("permanent failure retried %d times", api.puts)
	}
}

func TestNewFromConfigServesLocalRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.RetryAttempts = 3
	store, err := blobstore.New(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.Name() != "local" {
		t.Fatalf("expected local backend, got %s", store.Name())
	}
	root, ok := blobstore.LocalRoot(store)
	if !ok || root != cfg.Storage.LocalDir {
		t.Fatalf("LocalRoot = %q, %v", root, ok)
	}
}
