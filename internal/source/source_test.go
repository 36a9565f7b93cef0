package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStaticReadAndSet(t *testing.T) {
	t.Parallel()

	s := NewStatic(map[string][]byte{"a.dts": []byte("/dts-v1/;")})
	got, err := s.Read(context.Background(), "a.dts")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "/dts-v1/;" {
		t.Fatalf("Read = %q, want %q", got, "/dts-v1/;")
	}

	if _, err := s.Read(context.Background(), "missing.dts"); err == nil {
		t.Fatal("expected an error reading an unregistered URI")
	}

	s.Set("a.dts", []byte("/dts-v1/;\n/ {};"))
	got, err = s.Read(context.Background(), "a.dts")
	if err != nil {
		t.Fatalf("Read after Set: %v", err)
	}
	if string(got) != "/dts-v1/;\n/ {};" {
		t.Fatalf("Read after Set = %q, want updated content", got)
	}
}

func TestStaticReadHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewStatic(map[string][]byte{"a.dts": []byte("x")})
	if _, err := s.Read(ctx, "a.dts"); err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}

func TestOSReadPlainPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.dts")
	if err := os.WriteFile(path, []byte("/dts-v1/;"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := (OS{}).Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "/dts-v1/;" {
		t.Fatalf("Read = %q, want file content", got)
	}
}

func TestOSReadStripsFileScheme(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.dts")
	if err := os.WriteFile(path, []byte("/dts-v1/;"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := (OS{}).Read(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "/dts-v1/;" {
		t.Fatalf("Read = %q, want file content", got)
	}
}
