package document

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mallmap/core/internal/ports"
)

// fakeS3 is a path-style S3 subset: HEAD bucket, GET/PUT object.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(req.URL.Path, "/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 1 {
		if req.Method == http.MethodHead {
			return respond(http.StatusOK, nil), nil
		}
		return respond(http.StatusNotImplemented, nil), nil
	}
	key := parts[0] + "/" + parts[1]

	switch req.Method {
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound, []byte(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)), nil
		}
		return respond(http.StatusOK, body), nil
	case http.MethodPut:
		if f.failPut {
			return respond(http.StatusForbidden, []byte(`<?xml version="1.0"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)), nil
		}
		body, _ := io.ReadAll(req.Body)
		f.objects[key] = body
		return respond(http.StatusOK, nil), nil
	}
	return respond(http.StatusNotImplemented, nil), nil
}

func respond(status int, body []byte) *http.Response {
	h := http.Header{}
	if len(body) > 0 && status >= 300 {
		h.Set("Content-Type", "application/xml")
	}
	return &http.Response{
		StatusCode:    status,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

func newFakeS3Store(t *testing.T) (*S3, *fakeS3) {
	t.Helper()
	rt := &fakeS3{objects: map[string][]byte{}}
	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		Credentials:                credentials.NewStaticCredentialsProvider("AKIA", "SECRET", ""),
		HTTPClient:                 &http.Client{Transport: rt},
		BaseEndpoint:               aws.String("https://mock.s3.local"),
		UsePathStyle:               true,
		RetryMaxAttempts:           1,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	return NewS3WithClient(client, "malls-bucket", "data/malls.json"), rt
}

func TestS3_ReadMissing(t *testing.T) {
	store, _ := newFakeS3Store(t)
	if _, err := store.Read(context.Background()); !errors.Is(err, ports.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestS3_WriteThenRead(t *testing.T) {
	ctx := context.Background()
	store, rt := newFakeS3Store(t)

	if err := store.Write(ctx, []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := rt.objects["malls-bucket/data/malls.json"]; !ok {
		t.Fatalf("object not stored under bucket/key, have %v", rt.objects)
	}
	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `[{"id":1}]` {
		t.Fatalf("unexpected body %q", got)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestS3_WriteFailure(t *testing.T) {
	store, rt := newFakeS3Store(t)
	rt.failPut = true
	err := store.Write(context.Background(), []byte(`[]`))
	if err == nil {
		t.Fatalf("expected write error")
	}
	if errors.Is(err, ports.ErrDocumentNotFound) {
		t.Fatalf("write failure must not look like a missing document")
	}
}

func TestNewS3_Validation(t *testing.T) {
	ctx := context.Background()
	if _, err := NewS3(ctx, S3Config{Key: "k"}); err == nil {
		t.Fatalf("expected bucket error")
	}
	if _, err := NewS3(ctx, S3Config{Bucket: "b"}); err == nil {
		t.Fatalf("expected key error")
	}
	s, err := NewS3(ctx, S3Config{Bucket: "b", Key: "k", Endpoint: "http://localhost:9000", PathStyle: true, AccessKeyID: "id", SecretAccessKey: "secret"})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	if s.Name() != "s3" {
		t.Fatalf("unexpected name %q", s.Name())
	}
}
