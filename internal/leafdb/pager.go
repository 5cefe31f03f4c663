package leafdb

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/multierr"
)

const (
	// DefaultMaxPages is the soft cap on the number of cached pages. There
	// is no eviction: flushing is the only point at which page mutations
	// reach disk, so every cached page has to stay resident until then.
	DefaultMaxPages = 4096
)

type DBFile interface {
	io.ReadSeeker
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// Pager owns the backing file and an in-memory cache of pages addressed
// by page number. Pages are loaded lazily and written back only on an
// explicit flush, unconditionally (no dirty tracking).
type Pager struct {
	pageSize   int
	valueSize  uint32
	maxPages   uint32
	totalPages uint32

	// pages is a sparse slice where index = page number
	pages []*Page

	file     DBFile
	fileSize int64
}

func NewPager(file DBFile, pageSize int, valueSize uint32, maxPages uint32) (*Pager, error) {
	if maxPages == 0 {
		maxPages = DefaultMaxPages
	}
	aPager := &Pager{
		pageSize:  pageSize,
		valueSize: valueSize,
		maxPages:  maxPages,
		file:      file,
		pages:     make([]*Page, 0, 64),
	}

	fileSize, err := aPager.file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	aPager.fileSize = fileSize

	if fileSize%int64(pageSize) != 0 {
		return nil, fmt.Errorf("db file size is not divisible by page size: %d", fileSize)
	}

	totalPages := fileSize / int64(pageSize)
	if uint32(totalPages) > maxPages {
		return nil, fmt.Errorf("%w: file holds %d pages, limit is %d", ErrMaximumPagesReached, totalPages, maxPages)
	}
	aPager.totalPages = uint32(totalPages)

	return aPager, nil
}

func (p *Pager) TotalPages() uint32 {
	return p.totalPages
}

// GetPage returns the cached page, loading it from the file on a cache
// miss. Requesting page number equal to TotalPages grows the logical page
// count, handing out a fresh zeroed leaf page.
func (p *Pager) GetPage(ctx context.Context, pageIdx PageIndex) (*Page, error) {
	if len(p.pages) > int(pageIdx) && p.pages[pageIdx] != nil {
		return p.pages[pageIdx], nil
	}

	if uint32(pageIdx) >= p.maxPages {
		return nil, fmt.Errorf("%w: page %d, limit is %d", ErrMaximumPagesReached, pageIdx, p.maxPages)
	}
	if uint32(pageIdx) > p.totalPages {
		return nil, fmt.Errorf("cannot skip index when getting page, index: %d, number of pages: %d", pageIdx, p.totalPages)
	}

	if len(p.pages) < int(pageIdx)+1 {
		// Extend sparse slice, maintaining the invariant slice index = page index
		for i := len(p.pages); i < int(pageIdx)+1; i++ {
			p.pages = append(p.pages, nil)
		}
	}

	if uint32(pageIdx) == p.totalPages {
		// Requesting a new page, fresh pages start out as empty leafs
		p.pages[pageIdx] = &Page{Index: pageIdx, LeafNode: NewLeafNode(p.valueSize)}
		p.totalPages = uint32(pageIdx) + 1
	} else {
		buf := make([]byte, p.pageSize)
		offset := int64(pageIdx) * int64(p.pageSize)
		if _, err := p.file.ReadAt(buf, offset); err != nil {
			return nil, fmt.Errorf("read page %d: %w", pageIdx, err)
		}

		if buf[0] == PageTypeLeaf {
			leaf := NewLeafNode(p.valueSize)
			if _, err := leaf.Unmarshal(buf); err != nil {
				return nil, fmt.Errorf("unmarshal leaf page %d: %w", pageIdx, err)
			}
			p.pages[pageIdx] = &Page{Index: pageIdx, LeafNode: leaf}
		} else {
			internal := NewInternalNode()
			if _, err := internal.Unmarshal(buf); err != nil {
				return nil, fmt.Errorf("unmarshal internal page %d: %w", pageIdx, err)
			}
			p.pages[pageIdx] = &Page{Index: pageIdx, InternalNode: internal}
		}
	}

	// The root always lives on page 0
	if pageIdx == 0 {
		if p.pages[pageIdx].LeafNode != nil {
			p.pages[pageIdx].LeafNode.Header.IsRoot = true
		}
		if p.pages[pageIdx].InternalNode != nil {
			p.pages[pageIdx].InternalNode.Header.IsRoot = true
		}
	}

	return p.pages[pageIdx], nil
}

func (p *Pager) Flush(ctx context.Context, pageIdx PageIndex) error {
	if int(pageIdx) >= len(p.pages) || p.pages[pageIdx] == nil {
		return nil
	}

	aPage := p.pages[pageIdx]

	buf := make([]byte, p.pageSize)
	if _, err := marshalPage(aPage, buf); err != nil {
		return fmt.Errorf("error flushing page %d: %w", pageIdx, err)
	}

	_, err := p.file.WriteAt(buf, int64(pageIdx)*int64(p.pageSize))

	return err
}

// FlushAll writes every cached page back to its file offset. This is the
// only point at which page contents become durable.
func (p *Pager) FlushAll(ctx context.Context) error {
	for pageIdx := range p.pages {
		if err := p.Flush(ctx, PageIndex(pageIdx)); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes all cached pages and releases the file handle.
func (p *Pager) Close(ctx context.Context) error {
	return multierr.Append(p.FlushAll(ctx), p.file.Close())
}

func marshalPage(aPage *Page, buf []byte) ([]byte, error) {
	if aPage.LeafNode != nil {
		data, err := aPage.LeafNode.Marshal(buf)
		if err != nil {
			return nil, fmt.Errorf("error marshaling leaf node: %w", err)
		}
		return data, nil
	} else if aPage.InternalNode != nil {
		data, err := aPage.InternalNode.Marshal(buf)
		if err != nil {
			return nil, fmt.Errorf("error marshaling internal node: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("page %d is neither internal nor leaf node", aPage.Index)
}
