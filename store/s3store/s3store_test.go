package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/rtti/store"
)

type clientMock struct {
	mock.Mock
}

func (m *clientMock) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *clientMock) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *clientMock) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *clientMock) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func (m *clientMock) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func keyIs(key string) func(in any) bool {
	return func(in any) bool {
		switch v := in.(type) {
		case *s3.PutObjectInput:
			return aws.ToString(v.Bucket) == "assets" && aws.ToString(v.Key) == key
		case *s3.GetObjectInput:
			return aws.ToString(v.Bucket) == "assets" && aws.ToString(v.Key) == key
		case *s3.HeadObjectInput:
			return aws.ToString(v.Bucket) == "assets" && aws.ToString(v.Key) == key
		case *s3.DeleteObjectInput:
			return aws.ToString(v.Bucket) == "assets" && aws.ToString(v.Key) == key
		}
		return false
	}
}

func newBackend(t *testing.T) (*Backend, *clientMock) {
	t.Helper()
	m := &clientMock{}
	b, err := New(m, "assets")
	require.NoError(t, err)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return b, m
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "assets")
	assert.Error(t, err)
	_, err = New(&clientMock{}, "")
	assert.Error(t, err)
}

func TestPut(t *testing.T) {
	b, m := newBackend(t)
	ctx := context.Background()

	m.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		r, ok := in.Body.(*bytes.Reader)
		if !ok {
			return false
		}
		body := make([]byte, r.Size())
		_, _ = r.ReadAt(body, 0)
		return keyIs("k1")(in) && bytes.Equal(body, []byte{1, 2, 3}) &&
			aws.ToInt64(in.ContentLength) == 3 && aws.ToString(in.ContentType) == contentType
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, b.Put(ctx, "k1", []byte{1, 2, 3}))
}

func TestPut_Error(t *testing.T) {
	b, m := newBackend(t)
	boom := errors.New("access denied")
	m.On("PutObject", mock.Anything, mock.Anything).Return(nil, boom).Once()

	err := b.Put(context.Background(), "k1", nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "s3://assets/k1")
}

func TestGet(t *testing.T) {
	b, m := newBackend(t)
	ctx := context.Background()
	m.On("GetObject", ctx, mock.MatchedBy(func(in *s3.GetObjectInput) bool { return keyIs("k1")(in) })).
		Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte("blob")))}, nil).Once()

	data, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), data)
}

func TestGet_NotFound(t *testing.T) {
	b, m := newBackend(t)
	m.On("GetObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{}).Once()

	_, err := b.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete(t *testing.T) {
	b, m := newBackend(t)
	ctx := context.Background()
	m.On("HeadObject", ctx, mock.MatchedBy(func(in *s3.HeadObjectInput) bool { return keyIs("k1")(in) })).
		Return(&s3.HeadObjectOutput{}, nil).Once()
	m.On("DeleteObject", ctx, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool { return keyIs("k1")(in) })).
		Return(&s3.DeleteObjectOutput{}, nil).Once()

	require.NoError(t, b.Delete(ctx, "k1"))
}

func TestDelete_NotFound(t *testing.T) {
	b, m := newBackend(t)
	m.On("HeadObject", mock.Anything, mock.Anything).Return(nil, &types.NotFound{}).Once()

	err := b.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	m.AssertNotCalled(t, "DeleteObject", mock.Anything, mock.Anything)
}

func TestList_Paginates(t *testing.T) {
	b, m := newBackend(t)
	ctx := context.Background()

	m.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.Prefix) == "libs/" && in.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		Contents:              []types.Object{{Key: aws.String("libs/a")}, {Key: aws.String("libs/b")}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("page2"),
	}, nil).Once()
	m.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.ContinuationToken) == "page2"
	})).Return(&s3.ListObjectsV2Output{
		Contents:    []types.Object{{Key: aws.String("libs/c")}},
		IsTruncated: aws.Bool(false),
	}, nil).Once()

	keys, err := b.List(ctx, "libs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"libs/a", "libs/b", "libs/c"}, keys)
}
