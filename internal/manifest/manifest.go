// Package manifest builds checksum manifests for archived directories.
//
// A manifest has one "<hex digest>  <relative path>" line per matching file,
// sorted by path, which is the layout md5sum -c reads.
package manifest

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
)

// Algo names a digest algorithm.
type Algo string

const (
	MD5  Algo = "md5"
	XXH3 Algo = "xxh3"
)

func (a Algo) newHash() (hash.Hash, error) {
	switch a {
	case MD5, "":
		return md5.New(), nil
	case XXH3:
		return xxh3.New(), nil
	default:
		return nil, fmt.Errorf("unknown digest algorithm %q", a)
	}
}

// Filter selects files by name. An empty Filter matches every file.
type Filter struct {
	// Suffix matches file names ending in it (e.g. ".fits").
	Suffix string
	// Pattern matches when it occurs anywhere in the file name.
	Pattern *regexp.Regexp
	// Exclude lists slash-separated relative paths to leave out, typically
	// the manifest file itself.
	Exclude []string
}

func (f Filter) match(rel string) bool {
	for _, x := range f.Exclude {
		if x == rel {
			return false
		}
	}
	name := filepath.Base(rel)
	if f.Suffix != "" && !strings.HasSuffix(name, f.Suffix) {
		return false
	}
	if f.Pattern != nil && !f.Pattern.MatchString(name) {
		return false
	}
	return true
}

// Entry is one manifest line.
type Entry struct {
	Path   string
	Digest string
}

// Options configure Build.
type Options struct {
	Algo    Algo
	Workers int
}

// Build walks root and digests every regular file accepted by filter.
// Entries are sorted by slash-separated relative path.
func Build(ctx context.Context, root string, filter Filter, opts Options) ([]Entry, error) {
	if _, err := opts.Algo.newHash(); err != nil {
		return nil, err
	}

	var rels []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if filter.match(rel) {
			rels = append(rels, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(rels)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	entries := make([]Entry, len(rels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range rels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := digestFile(filepath.Join(root, filepath.FromSlash(rel)), opts.Algo)
			if err != nil {
				return err
			}
			entries[i] = Entry{Path: rel, Digest: sum}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func digestFile(path string, algo Algo) (string, error) {
	h, err := algo.newHash()
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Write writes entries in manifest layout.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s  %s\n", e.Digest, e.Path); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}
	return bw.Flush()
}

// WriteFile builds the manifest of root and writes it to out. When out lies
// inside root it is excluded from its own listing.
func WriteFile(ctx context.Context, root, out string, filter Filter, opts Options) (int, error) {
	if rel, err := filepath.Rel(root, out); err == nil && !strings.HasPrefix(rel, "..") {
		filter.Exclude = append(filter.Exclude, filepath.ToSlash(rel))
	}
	entries, err := Build(ctx, root, filter, opts)
	if err != nil {
		return 0, err
	}
	f, err := os.Create(out)
	if err != nil {
		return 0, fmt.Errorf("create manifest: %w", err)
	}
	if err := Write(f, entries); err != nil {
		f.Close()
		return 0, err
	}
	return len(entries), f.Close()
}
