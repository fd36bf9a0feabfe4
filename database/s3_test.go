package database

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/kanban/board"
	"github.com/CrowderSoup/kanban/config"
)

// fakeObjects is an in-memory ObjectAPI keyed by bucket/key.
type fakeObjects struct {
	objects map[string][]byte
	buckets map[string]bool
}

func newFakeObjects(buckets ...string) *fakeObjects {
	f := &fakeObjects{objects: make(map[string][]byte), buckets: make(map[string]bool)}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	return f
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "not found"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.buckets[aws.ToString(in.Bucket)] {
		return nil, &smithy.GenericAPIError{Code: "NotFound"}
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Store_SaveAndLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	objects := newFakeObjects("boards")
	store := NewS3Store(objects, "boards", "users/")

	_, err := store.Load(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "u1", board.SeedBoards()))
	assert.Contains(t, objects.objects, "boards/users/u1/board.json")

	boards, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, board.SeedBoards(), boards)
}

func TestS3Store_EnsureBucket(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.NoError(t, NewS3Store(newFakeObjects("boards"), "boards", "").EnsureBucket(ctx))
	assert.ErrorContains(t, NewS3Store(newFakeObjects(), "boards", "").EnsureBucket(ctx), "does not exist")
}

func TestNewS3Client(t *testing.T) {
	t.Parallel()

	client, err := NewS3Client(context.Background(), config.S3Config{
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		AccessKey:    "minio",
		SecretKey:    "minio123",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}
