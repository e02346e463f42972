// Package storage saves downloaded recording audio to a local directory or
// an S3 bucket.
//
// A destination is given as a directory path or as an s3:// URL:
//
//	dest, err := storage.ParseDestination("s3://recordings/2024")
//	store, err := dest.Open(ctx)
//	loc, err := store.Save(ctx, "fb/4/rec-1.wav", body)
//
// S3 credentials, region and endpoint come from the standard AWS
// environment and shared config files (AWS_PROFILE, AWS_REGION,
// AWS_ENDPOINT_URL_S3 and so on).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AudioStore stores audio files by name.
//
// Names are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type AudioStore interface {
	// Save writes r under name, replacing an existing file, and returns
	// where it was stored (a file path or an s3:// URL).
	Save(ctx context.Context, name string, r io.Reader) (string, error)

	// Open opens a stored file. If it does not exist, an error wrapping
	// os.ErrNotExist is returned.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Exists reports whether name is stored.
	Exists(ctx context.Context, name string) (bool, error)
}

// ErrInvalidDestination is returned by ParseDestination.
var ErrInvalidDestination = errors.New("storage: invalid destination")

// Destination is a parsed storage location.
type Destination struct {
	// Bucket is set for S3 destinations.
	Bucket string

	// Prefix is the key prefix within Bucket, without slashes at either
	// end.
	Prefix string

	// Dir is set for local destinations.
	Dir string
}

// IsS3 reports whether d points at an S3 bucket.
func (d Destination) IsS3() bool {
	return d.Bucket != ""
}

func (d Destination) String() string {
	if !d.IsS3() {
		return d.Dir
	}
	if d.Prefix == "" {
		return "s3://" + d.Bucket
	}
	return "s3://" + d.Bucket + "/" + d.Prefix
}

// ParseDestination parses "s3://bucket[/prefix]" or a directory path.
func ParseDestination(dest string) (Destination, error) {
	if dest == "" {
		return Destination{}, fmt.Errorf("%w: empty", ErrInvalidDestination)
	}
	if !strings.HasPrefix(dest, "s3://") {
		if strings.Contains(dest, "://") {
			return Destination{}, fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidDestination, dest)
		}
		return Destination{Dir: dest}, nil
	}

	u, err := url.Parse(dest)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}
	if u.Host == "" {
		return Destination{}, fmt.Errorf("%w: missing bucket in %q", ErrInvalidDestination, dest)
	}
	return Destination{
		Bucket: u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	}, nil
}

// Open creates the store for d. S3 stores use the default AWS config
// chain.
func (d Destination) Open(ctx context.Context) (AudioStore, error) {
	if !d.IsS3() {
		return NewLocal(d.Dir)
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	return NewS3(s3.NewFromConfig(cfg), d.Bucket, d.Prefix), nil
}
