package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ErrMalformedDataURI is returned for a data: payload that cannot be decoded
var ErrMalformedDataURI = errors.New("malformed data URI")

// DocumentStore persists a submitted document and returns the reference
// stored on the compliance request.
type DocumentStore interface {
	Store(ctx context.Context, ownerID, docType, payload string) (string, error)
	// Resolve turns a stored reference into a URL a reviewer can open
	Resolve(ctx context.Context, ref string) (string, error)
}

// InlineStore keeps the payload as given
type InlineStore struct{}

func NewInlineStore() *InlineStore {
	return &InlineStore{}
}

func (InlineStore) Store(ctx context.Context, ownerID, docType, payload string) (string, error) {
	return payload, nil
}

func (InlineStore) Resolve(ctx context.Context, ref string) (string, error) {
	return ref, nil
}

// S3DocumentStore uploads data: URI payloads under a content-addressed key.
// Other payloads, such as external URLs, are kept as given.
type S3DocumentStore struct {
	client    S3Client
	bucket    string
	presignIn time.Duration
}

func NewS3DocumentStore(client S3Client, bucket string) *S3DocumentStore {
	return &S3DocumentStore{client: client, bucket: bucket, presignIn: 15 * time.Minute}
}

func (s *S3DocumentStore) Store(ctx context.Context, ownerID, docType, payload string) (string, error) {
	if !strings.HasPrefix(payload, "data:") {
		return payload, nil
	}

	contentType, data, err := DecodeDataURI(payload)
	if err != nil {
		return "", err
	}

	sum := blake2b.Sum256(data)
	key := fmt.Sprintf("compliance/%s/%s/%x", ownerID, docType, sum)
	if err := s.client.Upload(ctx, s.bucket, key, contentType, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return "s3://" + s.bucket + "/" + key, nil
}

func (s *S3DocumentStore) Resolve(ctx context.Context, ref string) (string, error) {
	prefix := "s3://" + s.bucket + "/"
	if !strings.HasPrefix(ref, prefix) {
		return ref, nil
	}
	return s.client.GetPresignedURL(ctx, s.bucket, strings.TrimPrefix(ref, prefix), s.presignIn)
}

// DecodeDataURI parses data:[<mediatype>][;base64],<data>
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrMalformedDataURI
	}
	meta, body, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrMalformedDataURI
	}

	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "text/plain;charset=US-ASCII"
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
		}
		return contentType, data, nil
	}

	decoded, err := url.PathUnescape(body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
	}
	return contentType, []byte(decoded), nil
}
