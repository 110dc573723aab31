package initramfs

// Archive is an in-memory newc archive.
type Archive struct {
	data []byte
}

func New(data []byte) Archive {
	return Archive{data: data}
}

// Entries returns an iterator positioned before the first entry. Every call
// starts over from offset 0.
func (a Archive) Entries() *Iterator {
	return &Iterator{data: a.data}
}

// Iterator walks an archive up to and including the trailer.
//
//	it := a.Entries()
//	for it.Next() {
//		e := it.Entry()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	data []byte
	off  int
	cur  Entry
	err  error
	done bool
}

// Next advances to the next entry. It returns false after the trailer has
// been produced or on a decode error.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	e, err := ParseEntry(it.data, it.off)
	if err != nil {
		it.err = err
		it.done = true
		return false
	}
	it.cur = e
	if e.IsTrailer() {
		it.done = true
	} else {
		it.off = e.Next
	}
	return true
}

func (it *Iterator) Entry() Entry { return it.cur }

func (it *Iterator) Err() error { return it.err }
