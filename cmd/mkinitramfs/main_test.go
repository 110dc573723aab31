//go:build !tinygo

package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cavaliergopher/cpio"
	"github.com/google/go-cmp/cmp"

	"rpiterm/initramfs"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestPackRoundTrip(t *testing.T) {
	src := writeTree(t, map[string]string{
		"b.txt":       "bee\n",
		"a.txt":       "alpha",
		"bin/prog":    "\x00\x00\x00\xd4",
		"bin/empty":   "",
		"z/deep/file": strings.Repeat("x", 1023),
	})
	if err := os.Symlink("a.txt", filepath.Join(src, "link")); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "initramfs.cpio")

	n, err := pack(src, out, false)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if n != 8 {
		t.Fatalf("pack wrote %d entries, want 8", n)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	type entry struct {
		Name string
		Dir  bool
		Body string
	}
	var got []entry
	r := cpio.NewReader(bytes.NewReader(raw))
	for {
		hdr, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		body, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("read %s: %v", hdr.Name, err)
		}
		if hdr.ModTime.Unix() != 0 {
			t.Fatalf("%s: mtime %v recorded", hdr.Name, hdr.ModTime)
		}
		got = append(got, entry{hdr.Name, hdr.Mode.IsDir(), string(body)})
	}
	want := []entry{
		{"a.txt", false, "alpha"},
		{"b.txt", false, "bee\n"},
		{"bin", true, ""},
		{"bin/empty", false, ""},
		{"bin/prog", false, "\x00\x00\x00\xd4"},
		{"z", true, ""},
		{"z/deep", true, ""},
		{"z/deep/file", false, strings.Repeat("x", 1023)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("archive members (-want +got):\n%s", diff)
	}
}

func TestPackedArchiveParsesInKernel(t *testing.T) {
	src := writeTree(t, map[string]string{"hello": "hi", "bin/prog": "1234"})
	out := filepath.Join(t.TempDir(), "initramfs.cpio")
	if _, err := pack(src, out, true); err != nil {
		t.Fatalf("pack: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	var paths []string
	it := initramfs.New(raw).Entries()
	for it.Next() {
		e := it.Entry()
		if e.IsTrailer() {
			break
		}
		paths = append(paths, e.Path)
		if e.Path == "bin/prog" && string(e.Data) != "1234" {
			t.Fatalf("bin/prog data=%q", e.Data)
		}
	}
	if err := it.Err(); err != nil {
		t.Fatalf("kernel parser: %v", err)
	}
	if diff := cmp.Diff([]string{"bin", "bin/prog", "hello"}, paths); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}
}

func TestRootCmd(t *testing.T) {
	src := writeTree(t, map[string]string{"f": "x"})
	out := filepath.Join(t.TempDir(), "out.cpio")

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{src, "-o", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := stdout.String(); got != out+": 1 entries\n" {
		t.Fatalf("stdout=%q", got)
	}

	cmd = newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{filepath.Join(src, "f")})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("packing a regular file succeeded")
	}
}
