package blobstore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is a minimal in-memory stand-in for the S3 SDK, in the spirit
// of storage/s3_mock.go's MockS3Client but scoped to Put/Get only.
type fakeClient struct {
	objects map[string][]byte
	err     error
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string][]byte)}
}

func (f *fakeClient) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, assert.AnError
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	client := newFakeClient()
	store := NewWithClient(client, "patterns", 1024)

	key := Key(7, "src/main.go", "ast")
	ref, err := store.Put(context.Background(), key, []byte("parsed-ast-content"))
	require.NoError(t, err)
	assert.Equal(t, "blob://patterns/"+key, ref)

	content, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "parsed-ast-content", string(content))
}

func TestStore_Get_MissingKeyErrors(t *testing.T) {
	store := NewWithClient(newFakeClient(), "patterns", 1024)
	_, err := store.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestStore_ShouldOverflow(t *testing.T) {
	store := NewWithClient(newFakeClient(), "patterns", 100)
	assert.False(t, store.ShouldOverflow(50))
	assert.True(t, store.ShouldOverflow(500))

	unbounded := NewWithClient(newFakeClient(), "patterns", 0)
	assert.False(t, unbounded.ShouldOverflow(1<<20))
}

func TestKey_IncludesRepoFileAndKind(t *testing.T) {
	assert.Equal(t, "repo-3/ast/src/a.go", Key(3, "src/a.go", "ast"))
}
