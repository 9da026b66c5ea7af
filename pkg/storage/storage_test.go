package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alextanhongpin/podreport/pkg/apperr"
)

func TestLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	s, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}

	testStorage(t, s)

	obj, err := s.Put(context.Background(), "a.docx", []byte("doc"), "application/octet-stream")
	if err != nil {
		t.Fatal(err)
	}

	if want := filepath.Join(s.dir, "a.docx"); obj.Path != want {
		t.Fatalf("want path %s, got %s", want, obj.Path)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 1 {
		t.Fatalf("temp files must not be left behind, got %d entries", len(entries))
	}
}

func TestS3(t *testing.T) {
	bucket := os.Getenv("PODREPORT_TEST_S3_BUCKET")
	if bucket == "" {
		t.Skip("PODREPORT_TEST_S3_BUCKET not set")
	}

	s, err := NewS3(context.Background(), S3Config{
		Bucket:          bucket,
		Region:          os.Getenv("PODREPORT_TEST_S3_REGION"),
		Endpoint:        os.Getenv("PODREPORT_TEST_S3_ENDPOINT"),
		AccessKeyID:     os.Getenv("PODREPORT_TEST_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("PODREPORT_TEST_S3_SECRET_ACCESS_KEY"),
		Prefix:          "test/",
	})
	if err != nil {
		t.Fatal(err)
	}

	testStorage(t, s)
}

func TestS3URL(t *testing.T) {
	tests := []struct {
		cfg  S3Config
		want string
	}{
		{
			cfg:  S3Config{Bucket: "b", Region: "us-east-1", Prefix: "reports/"},
			want: "https://b.s3.us-east-1.amazonaws.com/reports/Report_My_Pod.docx",
		},
		{
			cfg:  S3Config{Bucket: "b", Endpoint: "http://minio:9000/"},
			want: "http://minio:9000/b/Report_My_Pod.docx",
		},
	}

	for _, tt := range tests {
		s := &S3{cfg: tt.cfg}
		if got := s.url("Report_My_Pod.docx"); got != tt.want {
			t.Fatalf("want %s, got %s", tt.want, got)
		}
	}
}

func testStorage(t *testing.T, s Storage) {
	t.Helper()

	ctx := context.Background()
	key := "Report_Test_1700000000000.docx"

	if ok, err := s.Exists(ctx, key); err != nil || ok {
		t.Fatalf("want missing object, got %t, %v", ok, err)
	}

	if _, err := s.Get(ctx, key); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	obj, err := s.Put(ctx, key, []byte("hello"), "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	if err != nil {
		t.Fatal(err)
	}

	if obj.Key != key {
		t.Fatalf("want key %s, got %s", key, obj.Key)
	}

	b, err := s.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}

	if string(b) != "hello" {
		t.Fatalf("want hello, got %q", b)
	}

	if ok, err := s.Exists(ctx, key); err != nil || !ok {
		t.Fatalf("want existing object, got %t, %v", ok, err)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}

	// Deleting twice is fine.
	if err := s.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}

	for _, bad := range []string{"", "../escape.docx", "a/b.docx", ".."} {
		if _, err := s.Put(ctx, bad, nil, ""); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("%q: want ErrInvalidKey, got %v", bad, err)
		}
	}
}
