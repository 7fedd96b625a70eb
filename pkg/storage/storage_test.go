package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dtnitsch/landing-ops/models"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"run_1.html", "run_1.html", false},
		{"runs/2025/run_1.html", "runs/2025/run_1.html", false},
		{"/leading.html", "leading.html", false},
		{"", "", true},
		{"../escape.html", "", true},
		{"a/../../b", "", true},
	}
	for _, tt := range tests {
		got, err := cleanKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("cleanKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("cleanKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestLocalPutGet(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(t.TempDir())

	loc, err := s.Put(ctx, "runs/run_7.html", []byte("<html></html>"), "text/html")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if filepath.Base(loc) != "run_7.html" {
		t.Errorf("Put() location = %q", loc)
	}

	got, err := s.Get(ctx, loc)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "<html></html>" {
		t.Errorf("Get() = %q", got)
	}

	stats, err := s.GetFileStats(loc)
	if err != nil || stats.SizeBytes != 13 {
		t.Errorf("GetFileStats() = %+v, %v", stats, err)
	}

	if _, err := s.Get(ctx, filepath.Join(s.Root(), "missing.html")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := s.Put(ctx, "../x.html", nil, ""); err == nil {
		t.Error("Put(../x.html) error = nil")
	}
}

type fakeS3 struct {
	objects map[string][]byte
	lastPut *s3.PutObjectInput
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = body
	f.lastPut = in
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestS3PutGet(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	s := newS3(fake, models.S3Config{Bucket: "lp", Prefix: "/exports/", CacheControl: "max-age=60"})

	loc, err := s.Put(ctx, "run_3.html", []byte("hi"), "text/html; charset=utf-8")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if loc != "s3://lp/exports/run_3.html" {
		t.Errorf("Put() location = %q", loc)
	}
	if aws.ToString(fake.lastPut.ContentType) != "text/html; charset=utf-8" || aws.ToString(fake.lastPut.CacheControl) != "max-age=60" {
		t.Errorf("PutObjectInput = %+v", fake.lastPut)
	}

	got, err := s.Get(ctx, loc)
	if err != nil || string(got) != "hi" {
		t.Errorf("Get() = %q, %v", got, err)
	}
	if _, err := s.Get(ctx, "s3://lp/exports/nope.html"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, "s3://other/run_3.html"); err == nil {
		t.Error("Get(other bucket) error = nil")
	}
}
