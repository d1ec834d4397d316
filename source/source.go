// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package source opens disassembler exports. Exports are read from local files or
// from S3 (s3://bucket/key) and are transparently decompressed when they are
// gzip or zstd compressed.
package source // import "github.com/addsym/addsym/source"

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
)

const s3Scheme = "s3://"

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Reader is an opened export. Peek can be used to inspect the first bytes of the
// decompressed content without consuming them.
type Reader struct {
	*bufio.Reader

	closers []io.Closer
}

// Close releases the decompressor and the underlying file or object.
func (r *Reader) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	return errors.Join(errs...)
}

// ObjectGetter is the subset of the S3 client used to fetch exports.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput,
		optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener opens exports by name. An Opener is safe for concurrent use.
type Opener struct {
	// S3 is used for s3:// names. If nil, a client is created from the default AWS
	// configuration on first use.
	S3 ObjectGetter

	mu sync.Mutex
}

// Open opens the export called name.
func (o *Opener) Open(ctx context.Context, name string) (*Reader, error) {
	var rc io.ReadCloser
	var err error
	if strings.HasPrefix(name, s3Scheme) {
		rc, err = o.openS3(ctx, strings.TrimPrefix(name, s3Scheme))
	} else {
		rc, err = os.Open(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", name, err)
	}

	r, err := decompress(rc)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to open %q: %w", name, err)
	}
	return r, nil
}

func (o *Opener) openS3(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, ok := strings.Cut(path, "/")
	if !ok || bucket == "" || key == "" {
		return nil, errors.New("expected s3://bucket/key")
	}
	client, err := o.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	log.Debugf("Fetching export from bucket %s key %s", bucket, key)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (o *Opener) s3Client(ctx context.Context) (ObjectGetter, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.S3 == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		o.S3 = s3.NewFromConfig(cfg)
	}
	return o.S3, nil
}

// decompress wraps rc into a decompressor matching its content.
func decompress(rc io.ReadCloser) (*Reader, error) {
	br := bufio.NewReader(rc)
	// Short inputs return less than requested along with an error; the magic
	// comparison handles that.
	magic, _ := br.Peek(len(zstdMagic))

	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip stream: %w", err)
		}
		return &Reader{Reader: bufio.NewReader(zr), closers: []io.Closer{rc, zr}}, nil
	case bytes.HasPrefix(magic, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("invalid zstd stream: %w", err)
		}
		return &Reader{Reader: bufio.NewReader(zr), closers: []io.Closer{rc, zr.IOReadCloser()}}, nil
	default:
		return &Reader{Reader: br, closers: []io.Closer{rc}}, nil
	}
}
