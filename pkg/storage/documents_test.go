package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	data, _ := io.ReadAll(body)
	args := m.Called(ctx, bucket, key, contentType, data)
	return args.Error(0)
}

func (m *MockS3Client) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, expiration)
	return args.String(0), args.Error(1)
}

func TestS3DocumentStoreUploadsDataURI(t *testing.T) {
	client := new(MockS3Client)
	store := NewS3DocumentStore(client, "docs")
	ctx := context.Background()

	data := []byte("%PDF-1.4 test")
	key := fmt.Sprintf("compliance/u1/tax_document/%x", blake2b.Sum256(data))
	client.On("Upload", ctx, "docs", key, "application/pdf", data).Return(nil).Once()

	ref, err := store.Store(ctx, "u1", "tax_document", "data:application/pdf;base64,JVBERi0xLjQgdGVzdA==")
	require.NoError(t, err)
	assert.Equal(t, "s3://docs/"+key, ref)

	client.On("GetPresignedURL", ctx, "docs", key, 15*time.Minute).Return("https://signed.example/"+key, nil).Once()
	url, err := store.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/"+key, url)

	client.AssertExpectations(t)
}

func TestS3DocumentStoreKeepsExternalURLs(t *testing.T) {
	client := new(MockS3Client)
	store := NewS3DocumentStore(client, "docs")

	ref, err := store.Store(context.Background(), "u1", "identity_document", "https://files.example/id.png")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/id.png", ref)

	url, err := store.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, ref, url)

	client.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestS3DocumentStoreUploadFailure(t *testing.T) {
	client := new(MockS3Client)
	store := NewS3DocumentStore(client, "docs")
	client.On("Upload", mock.Anything, "docs", mock.Anything, "text/plain", []byte("hi")).Return(errors.New("network")).Once()

	_, err := store.Store(context.Background(), "u1", "tax_document", "data:text/plain,hi")
	assert.Error(t, err)
}

func TestDecodeDataURI(t *testing.T) {
	ct, data, err := DecodeDataURI("data:,hello%20world")
	require.NoError(t, err)
	assert.Equal(t, "text/plain;charset=US-ASCII", ct)
	assert.Equal(t, []byte("hello world"), data)

	for _, bad := range []string{"hello", "data:image/png;base64", "data:image/png;base64,***"} {
		_, _, err := DecodeDataURI(bad)
		assert.ErrorIs(t, err, ErrMalformedDataURI, bad)
	}
}

func TestInlineStore(t *testing.T) {
	ref, err := NewInlineStore().Store(context.Background(), "u1", "tax_document", "data:,x")
	require.NoError(t, err)
	assert.Equal(t, "data:,x", ref)
}
