//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

// Package xio opens and creates plain or compressed files. The compression is
// chosen from the file extension.
package xio

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	gzip "github.com/klauspost/pgzip"
	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
)

const bufferSize = 1 << 20

// Compression extensions recognized by Open and Create.
const (
	ExtGzip  = ".gz"
	ExtLZ4   = ".lz4"
	ExtZstd  = ".zst"
	ExtBzip2 = ".bz2"
)

// CompressionExt returns the compression extension of path or an empty string.
func CompressionExt(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ExtGzip, ExtLZ4, ExtZstd, ExtBzip2:
		return ext
	}
	return ""
}

// TrimCompressionExt removes the compression extension, if any.
func TrimCompressionExt(path string) string {
	return path[:len(path)-len(CompressionExt(path))]
}

type GenericWriter interface {
	Write(buf []byte) (n int, err error)
	Close() error
}

// readCloser closes the decompressor (when it can be closed) then the file.
type readCloser struct {
	io.Reader
	closers []func() error
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path for reading.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(f, bufferSize)
	rc := &readCloser{Reader: br, closers: []func() error{f.Close}}
	switch CompressionExt(path) {
	case ExtGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "opening gzip stream %s", path)
		}
		rc.Reader = zr
		rc.closers = append([]func() error{zr.Close}, rc.closers...)
	case ExtLZ4:
		rc.Reader = lz4.NewReader(br)
	case ExtZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "opening zstd stream %s", path)
		}
		rc.Reader = zr
		rc.closers = append([]func() error{func() error { zr.Close(); return nil }}, rc.closers...)
	case ExtBzip2:
		zr, err := bzip2.NewReader(br, nil)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "opening bzip2 stream %s", path)
		}
		rc.Reader = zr
		rc.closers = append([]func() error{zr.Close}, rc.closers...)
	}
	return rc, nil
}

// writeCloser flushes and closes the compressor, the buffer and the file in order.
type writeCloser struct {
	io.Writer
	closers []func() error
}

// Close runs every closer and returns the first error.
func (wc *writeCloser) Close() error {
	var first error
	for _, c := range wc.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Create creates (or truncates) path for writing.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, bufferSize)
	wc := &writeCloser{Writer: bw, closers: []func() error{bw.Flush, f.Close}}
	var writer GenericWriter
	switch CompressionExt(path) {
	case ExtGzip:
		writer = gzip.NewWriter(bw)
	case ExtLZ4:
		writer = lz4.NewWriter(bw)
	case ExtZstd:
		writer, err = zstd.NewWriter(bw)
	case ExtBzip2:
		writer, err = bzip2.NewWriter(bw, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	}
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "creating compressed stream %s", path)
	}
	if writer != nil {
		wc.Writer = writer
		wc.closers = append([]func() error{writer.Close}, wc.closers...)
	}
	return wc, nil
}
