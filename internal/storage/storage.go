// Package storage reads and writes small named blobs (rule tables) on local
// disk or S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when the named object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Blob reads and writes objects by key.
type Blob interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}

// Local stores objects as files under Dir.
type Local struct {
	Dir string
}

// NewLocal returns a Local rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{Dir: dir}
}

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("storage: empty key")
	}
	return filepath.Join(l.Dir, clean), nil
}

func (l *Local) Read(ctx context.Context, key string) ([]byte, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	return data, nil
}

func (l *Local) Write(ctx context.Context, key string, data []byte) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating dir for %s: %w", p, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return os.Rename(tmp, p)
}

// Location is a parsed rule path: either a local file or s3://bucket/key.
type Location struct {
	Scheme string // "file" or "s3"
	Bucket string
	Dir    string
	Key    string
}

// ParseLocation splits a path like "s3://bucket/rules/icp.yaml" or
// "config/scoring.yaml" into a backend and a key.
func ParseLocation(raw string) (Location, error) {
	if raw == "" {
		return Location{}, fmt.Errorf("storage: empty location")
	}
	if strings.HasPrefix(raw, "s3://") {
		u, err := url.Parse(raw)
		if err != nil {
			return Location{}, fmt.Errorf("storage: parse %q: %w", raw, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("storage: %q needs both bucket and key", raw)
		}
		return Location{Scheme: "s3", Bucket: u.Host, Key: key}, nil
	}
	raw = strings.TrimPrefix(raw, "file://")
	return Location{Scheme: "file", Dir: filepath.Dir(raw), Key: filepath.Base(raw)}, nil
}

func (l Location) String() string {
	if l.Scheme == "s3" {
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return filepath.Join(l.Dir, l.Key)
}

// Open returns the backend for loc. S3 clients are built lazily from the
// default AWS credential chain in region.
func Open(ctx context.Context, loc Location, region string) (Blob, error) {
	switch loc.Scheme {
	case "s3":
		return NewS3FromDefaultConfig(ctx, loc.Bucket, region)
	case "file", "":
		return NewLocal(loc.Dir), nil
	}
	return nil, fmt.Errorf("storage: unsupported scheme %q", loc.Scheme)
}
