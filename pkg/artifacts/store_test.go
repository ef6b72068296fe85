package artifacts

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

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surenss861/riskmate-sub004/pkg/config"
)

func TestRef(t *testing.T) {
	assert.Equal(t, "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Ref(nil))
}

func TestParseRef(t *testing.T) {
	_, err := parseRef("md5:abc")
	assert.ErrorIs(t, err, ErrInvalidRef)
	_, err = parseRef("sha256:../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidRef)
	_, err = parseRef("sha256:abcd")
	assert.ErrorIs(t, err, ErrInvalidRef)

	d, err := parseRef(Ref([]byte("x")))
	require.NoError(t, err)
	assert.Len(t, d, 64)
}

func storeContract(t *testing.T, s Store) {
	ctx := context.Background()
	data := []byte(`{"bundle":1}`)

	ref, err := s.Put(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, Ref(data), ref)

	again, err := s.Put(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, ref, again)

	got, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	ok, err := s.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	missing := Ref([]byte("missing"))
	ok, err = s.Exists(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidRef)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	storeContract(t, s)

	entries, err := os.ReadDir(filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".blob"))
}

// fakeS3 is an in-memory s3API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	headErr error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = b
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func TestS3Store(t *testing.T) {
	fake := newFakeS3()
	s := newS3Store(fake, "evidence", "riskmate/")
	storeContract(t, s)

	assert.Equal(t, 1, fake.puts, "second Put of the same blob is skipped")
	for key := range fake.objects {
		assert.True(t, strings.HasPrefix(key, "riskmate/"))
	}
}

func TestS3Store_HeadFailure(t *testing.T) {
	fake := newFakeS3()
	fake.headErr = errors.New("access denied")
	s := newS3Store(fake, "evidence", "")

	_, err := s.Put(context.Background(), []byte("x"))
	assert.ErrorContains(t, err, "access denied")
	assert.Equal(t, 0, fake.puts)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewStore(ctx, config.ArtifactConfig{StorageType: "fs"}, dir)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	assert.DirExists(t, filepath.Join(dir, "artifacts"))

	_, err = NewStore(ctx, config.ArtifactConfig{StorageType: "s3"}, dir)
	assert.ErrorContains(t, err, "ARTIFACT_S3_BUCKET")

	_, err = NewStore(ctx, config.ArtifactConfig{StorageType: "gcs"}, dir)
	assert.ErrorContains(t, err, "ARTIFACT_GCS_BUCKET")

	_, err = NewStore(ctx, config.ArtifactConfig{StorageType: "tape"}, dir)
	assert.ErrorContains(t, err, "unsupported")
}
