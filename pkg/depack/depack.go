// Package depack turns a possibly compressed module file into plain
// candidate files for the module loader to try in turn.
package depack

import (
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/olivierh59500/xmkit/pkg/lzh"
)

// maxEntrySize bounds a single unpacked member.
const maxEntrySize = 256 << 20

// Candidates returns the plain files to try for path, in archive order.
// A file with no recognized compression is its own single candidate. The
// returned cleanup removes every temporary file and is never nil.
func Candidates(path, tmpDir string) ([]string, func(), error) {
	noop := func() {}
	kind := detect(path)
	if kind == kindPlain {
		return []string{path}, noop, nil
	}

	dir, err := os.MkdirTemp(tmpDir, "xmkit-")
	if err != nil {
		return nil, noop, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	var files []string
	switch kind {
	case kindGzip:
		files, err = gunzip(path, dir)
	case kindBzip2:
		files, err = bunzip2(path, dir)
	case kindZip:
		files, err = unzip(path, dir)
	case kindLZH:
		files, err = unlha(path, dir)
	}
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	if len(files) == 0 {
		cleanup()
		return nil, noop, fmt.Errorf("%s: archive holds no files", path)
	}
	return files, cleanup, nil
}

type archiveKind int

const (
	kindPlain archiveKind = iota
	kindGzip
	kindBzip2
	kindZip
	kindLZH
)

// detect picks the archive kind from the extension, falling back to the
// LHA method id for files with an unknown extension.
func detect(path string) archiveKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".mdz", ".xmz":
		return kindGzip
	case ".bz2":
		return kindBzip2
	case ".zip":
		return kindZip
	case ".lha", ".lzh":
		return kindLZH
	}
	f, err := os.Open(path)
	if err != nil {
		return kindPlain
	}
	defer f.Close()
	head := make([]byte, 22)
	if n, _ := io.ReadFull(f, head); lzh.IsArchive(head[:n]) {
		return kindLZH
	}
	return kindPlain
}

// stem is the file name of path without its compression extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeTemp(dir, name string, r io.Reader) (string, error) {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "member"
	}
	out, err := os.CreateTemp(dir, "*-"+name)
	if err != nil {
		return "", err
	}
	defer out.Close()
	n, err := io.Copy(out, io.LimitReader(r, maxEntrySize+1))
	if err != nil {
		return "", fmt.Errorf("unpack %s: %w", name, err)
	}
	if n > maxEntrySize {
		return "", fmt.Errorf("unpack %s: member larger than %d bytes", name, maxEntrySize)
	}
	return out.Name(), nil
}

func gunzip(path, dir string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gzip %s: %w", path, err)
	}
	defer zr.Close()
	name := zr.Name
	if name == "" {
		name = stem(path)
	}
	file, err := writeTemp(dir, name, zr)
	if err != nil {
		return nil, err
	}
	return []string{file}, nil
}

func bunzip2(path, dir string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	file, err := writeTemp(dir, stem(path), bzip2.NewReader(f))
	if err != nil {
		return nil, err
	}
	return []string{file}, nil
}

func unzip(path, dir string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("zip %s: %w", path, err)
	}
	defer zr.Close()
	var files []string
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("zip %s: %w", zf.Name, err)
		}
		file, err := writeTemp(dir, zf.Name, rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func unlha(path, dir string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := lzh.ReadArchive(data)
	if err != nil && len(entries) == 0 {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		file, err := writeTemp(dir, e.Name, bytes.NewReader(e.Data))
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}
