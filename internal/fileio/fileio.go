/*
 * fileio.go, part of atomsio.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package fileio opens and creates files, transparently (de)compressing
// them according to their suffix: ".gz" is gzip and ".zst" is zstandard.
// Anything else is read and written as is.
package fileio

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the compression used for a file.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

// CompressionOf returns the compression implied by the suffix of name.
func CompressionOf(name string) Compression {
	l := strings.ToLower(name)
	switch {
	case strings.HasSuffix(l, ".gz"):
		return Gzip
	case strings.HasSuffix(l, ".zst"):
		return Zstd
	}
	return None
}

// zstd.Decoder's Close doesn't return an error, so it isn't an io.ReadCloser.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// chain closes the decompressor before the underlying file.
type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewReader wraps r in the decompressor for c.
func NewReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewReader(r)
	case Zstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zstdReadCloser{d}, nil
	}
	return io.NopCloser(r), nil
}

// NewWriter wraps w in the compressor for c. Closing the returned
// writer flushes the compressor but doesn't close w.
func NewWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	}
	return nopWriteCloser{w}, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Open opens name for reading, decompressing it if needed.
func Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	d, err := NewReader(bufio.NewReader(f), CompressionOf(name))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &readCloser{Reader: d, closers: []io.Closer{d, f}}, nil
}

type writeCloser struct {
	*bufio.Writer
	comp io.WriteCloser
	f    *os.File
}

func (w *writeCloser) Close() error {
	err := w.Writer.Flush()
	if cerr := w.comp.Close(); err == nil {
		err = cerr
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Create creates (or truncates) name for writing, compressing the output
// if needed. The file is only complete after a successful Close.
func Create(name string) (io.WriteCloser, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	c, err := NewWriter(f, CompressionOf(name))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &writeCloser{Writer: bufio.NewWriter(c), comp: c, f: f}, nil
}
