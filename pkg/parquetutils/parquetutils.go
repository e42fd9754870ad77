// Package parquetutils provides an in-memory parquet source/sink and small
// read helpers on top of xitongsys/parquet-go.
package parquetutils

import (
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
)

// ReaderConcurrency parallel number of file readers.
var ReaderConcurrency int64 = 8

// ReadAll reads all records from the parquet file.
func ReadAll[T any](sourceFile source.ParquetFile) ([]T, error) {
	r, err := reader.NewParquetReader(sourceFile, new(T), ReaderConcurrency)
	if err != nil {
		return nil, errors.Wrap(err, "can't create parquet reader")
	}
	defer r.ReadStop()

	data := make([]T, r.GetNumRows())
	if err = r.Read(&data); err != nil {
		return nil, errors.Wrap(err, "failed to read parquet data")
	}

	return data, nil
}

var (
	_ source.ParquetFile = (*Buffer)(nil)
	_ io.WriterAt        = (*Buffer)(nil)
)

// Buffer is a memory-backed parquet file, usable as both writer sink and
// reader source.
type Buffer struct {
	buf []byte
	loc int
	m   sync.Mutex
}

// NewBuffer creates a new empty in-memory parquet buffer.
func NewBuffer() *Buffer {
	return &Buffer{buf: make([]byte, 0, 512)}
}

// NewBufferFrom creates an in-memory parquet buffer reading from the given
// bytes. The slice is used directly, not copied.
func NewBufferFrom(s []byte) *Buffer {
	return &Buffer{buf: s}
}

func (b *Buffer) Create(string) (source.ParquetFile, error) {
	return NewBuffer(), nil
}

func (b *Buffer) Open(string) (source.ParquetFile, error) {
	return NewBufferFrom(b.Bytes()), nil
}

func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	newLoc := b.loc
	switch whence {
	case io.SeekStart:
		newLoc = int(offset)
	case io.SeekCurrent:
		newLoc += int(offset)
	case io.SeekEnd:
		newLoc = len(b.buf) + int(offset)
	default:
		return int64(b.loc), errors.New("Seek: invalid whence")
	}

	if newLoc < 0 {
		return int64(b.loc), errors.New("Seek: invalid offset")
	}
	if newLoc > len(b.buf) {
		newLoc = len(b.buf)
	}

	b.loc = newLoc
	return int64(b.loc), nil
}

func (b *Buffer) Read(p []byte) (n int, err error) {
	n = copy(p, b.buf[b.loc:])
	b.loc += n

	if b.loc == len(b.buf) {
		return n, io.EOF
	}
	return n, nil
}

func (b *Buffer) Write(p []byte) (n int, err error) {
	n, err = b.WriteAt(p, int64(b.loc))
	if err != nil {
		return 0, err
	}
	b.loc += n
	return
}

// WriteAt writes p at pos, growing the buffer as needed. Overlapping writes
// overwrite previously written bytes.
func (b *Buffer) WriteAt(p []byte, pos int64) (n int, err error) {
	b.m.Lock()
	defer b.m.Unlock()
	pLen := len(p)
	expLen := pos + int64(pLen)
	if int64(len(b.buf)) < expLen {
		if int64(cap(b.buf)) < expLen {
			newBuf := make([]byte, expLen)
			copy(newBuf, b.buf)
			b.buf = newBuf
		}
		b.buf = b.buf[:expLen]
	}
	copy(b.buf[pos:], p)
	return pLen, nil
}

// Close is a no-op for a memory buffer.
func (*Buffer) Close() error {
	return nil
}

// Bytes returns the underlying buffer bytes.
func (b *Buffer) Bytes() []byte {
	return b.buf
}
