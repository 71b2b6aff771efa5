package http2

import "errors"

// errDynamicTableSizeExceedsLimit is returned by setMaxSize when a peer
// names a Dynamic Table Size Update above the negotiated hard limit.
var errDynamicTableSizeExceedsLimit = errors.New("http2: dynamic table size update exceeds negotiated limit")

// dynamicTable is the HPACK dynamic table: a FIFO of HeaderFields,
// newest entry first (matching the RFC 7541 §2.3.2 indexing direction,
// where the most-recently-added entry is index 62).
//
// https://tools.ietf.org/html/rfc7541#section-2.3.2
type dynamicTable struct {
	entries []*HeaderField
	size    uint32 // sum of each entry's RFC 7541 §4.1 Size()
	maxSize uint32

	// hardLimit bounds maxSize itself: a peer's Dynamic Table Size
	// Update can never grow the table past what this side is willing
	// to hold, regardless of what value it names.
	hardLimit uint32

	// entryLimit caps the number of entries regardless of byte size,
	// defending against a flood of zero/near-zero-size insertions.
	entryLimit int
}

const defaultDynamicEntryLimit = 1000

func newDynamicTable(maxSize uint32) *dynamicTable {
	return &dynamicTable{
		maxSize:    maxSize,
		hardLimit:  maxSize,
		entryLimit: defaultDynamicEntryLimit,
	}
}

func (dt *dynamicTable) reset(maxSize uint32) {
	dt.entries = dt.entries[:0]
	dt.size = 0
	dt.maxSize = maxSize
	dt.hardLimit = maxSize
}

// setMaxSize applies a Dynamic Table Size Update, evicting as needed.
// Per RFC 7541 §6.3 a peer must never name a size above the negotiated
// limit the table was built with; doing so is reported to the caller
// rather than silently clamped, since RFC 7541 §4.2 says as much is a
// decoding error.
func (dt *dynamicTable) setMaxSize(size uint32) error {
	if size > dt.hardLimit {
		return errDynamicTableSizeExceedsLimit
	}
	dt.maxSize = size
	dt.evict()
	return nil
}

func (dt *dynamicTable) evict() {
	for dt.size > dt.maxSize || len(dt.entries) > dt.entryLimit {
		if len(dt.entries) == 0 {
			dt.size = 0
			return
		}
		last := dt.entries[len(dt.entries)-1]
		dt.size -= uint32(last.Size())
		dt.entries = dt.entries[:len(dt.entries)-1]
	}
}

// add inserts hf at the front (most recent). A single entry larger than
// maxSize empties the table entirely, per RFC 7541 §4.4.
func (dt *dynamicTable) add(hf *HeaderField) {
	entry := AcquireHeaderField()
	hf.CopyTo(entry)

	dt.entries = append(dt.entries, nil)
	copy(dt.entries[1:], dt.entries)
	dt.entries[0] = entry
	dt.size += uint32(entry.Size())

	dt.evict()
}

// at returns the dynamic-table entry for a 0-based dynamic index (0 ==
// most recently inserted), or nil if out of range.
func (dt *dynamicTable) at(i int) *HeaderField {
	if i < 0 || i >= len(dt.entries) {
		return nil
	}
	return dt.entries[i]
}

func (dt *dynamicTable) len() int { return len(dt.entries) }
