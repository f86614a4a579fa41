package parser

import (
	"errors"
	"io"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// PagedReader reads the backing reader in whole pages and keeps the
// most recent pages around. Raw $J streams are mostly parsed in small
// reads of a record header at a time so this saves a lot of calls
// into the backing file. Devices like \\.\C: also require reads
// aligned to the sector size.
type PagedReader struct {
	mu sync.Mutex

	reader   io.ReaderAt
	pagesize int64
	lru      *simplelru.LRU[int64, []byte]
	pool     sync.Pool

	Hits int64
	Miss int64
}

// ReadAt reads a buffer from an offset in the backing file.
//
// The following semantics are used:
//  1. Reading within the file will always fill the buffer completely
//     with n = len(buf) and err = nil
//  2. Reading a buffer that starts within the file and ends past the
//     file will return a full buffer padded with zeros and err = nil
//  3. Reading outside the bounds of the file will return n = 0 and
//     err = EOF
func (self *PagedReader) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, io.EOF
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	buf_idx := 0
	for buf_idx < len(buf) {
		page := offset - offset%self.pagesize
		page_offset := int(offset % self.pagesize)

		page_buf, err := self.getPage(page)
		if err != nil {
			return buf_idx, err
		}

		// The read starts outside the file.
		if page_offset >= len(page_buf) {
			if buf_idx == 0 {
				return 0, io.EOF
			}
			return self.pad(buf, buf_idx), nil
		}

		n := copy(buf[buf_idx:], page_buf[page_offset:])
		offset += int64(n)
		buf_idx += n

		// A short page is the last page of the file.
		if buf_idx < len(buf) && int64(len(page_buf)) < self.pagesize {
			return self.pad(buf, buf_idx), nil
		}
	}

	return buf_idx, nil
}

// Some data was read so pad the rest.
func (self *PagedReader) pad(buf []byte, buf_idx int) int {
	for i := buf_idx; i < len(buf); i++ {
		buf[i] = 0
	}
	return len(buf)
}

// getPage returns the data in the page, which is shorter than the page
// size for the last page and empty past the end of the file.
func (self *PagedReader) getPage(page int64) ([]byte, error) {
	cached, pres := self.lru.Get(page)
	if pres {
		self.Hits++
		return cached, nil
	}
	self.Miss++

	page_buf := self.pool.Get().([]byte)
	n, err := self.reader.ReadAt(page_buf, page)
	if err != nil && !errors.Is(err, io.EOF) {
		self.pool.Put(page_buf)
		return nil, err
	}

	if n == 0 {
		self.pool.Put(page_buf)
		return nil, nil
	}

	self.lru.Add(page, page_buf[:n])
	return page_buf[:n], nil
}

// Flush drops all cached pages so the next read goes to the backing
// reader.
func (self *PagedReader) Flush() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.lru.Purge()
}

func NewPagedReader(reader io.ReaderAt, pagesize int64, cache_size int) (*PagedReader, error) {
	DebugPrint("Creating cache of size %v\n", cache_size)

	self := &PagedReader{
		reader:   reader,
		pagesize: pagesize,
	}
	self.pool.New = func() interface{} {
		return make([]byte, pagesize)
	}

	cache, err := simplelru.NewLRU[int64, []byte](cache_size,
		func(key int64, value []byte) {
			// Put the page back into the pool
			self.pool.Put(value[:cap(value)])
		})
	if err != nil {
		return nil, err
	}
	self.lru = cache

	return self, nil
}
