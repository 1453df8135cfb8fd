package pager

// ReadGuard is a scoped, read-latched reference to a pinned page. It is
// acquired via [Pager.FetchPageRead] and must be released exactly once via
// [ReadGuard.Release] (no long-lived references to page memory should cross
// an operation's return).
type ReadGuard struct {
	page     *Page
	released bool
}

// WriteGuard is a scoped, write-latched reference to a pinned page. Unlike
// ReadGuard it can change the page: [WriteGuard.Update] marks the page dirty
// itself, so the change is written through on eviction or pager close;
// [WriteGuard.MarkDirty] sets the same flag explicitly.
type WriteGuard struct {
	page     *Page
	released bool
}

// FetchPageRead pins and read-latches the page with the given page number.
func (pager *Pager) FetchPageRead(pagenum int64) (*ReadGuard, error) {
	page, err := pager.GetPage(pagenum)
	if err != nil {
		return nil, err
	}
	page.RLock()
	return &ReadGuard{page: page}, nil
}

// FetchPageWrite pins and write-latches the page with the given page number.
func (pager *Pager) FetchPageWrite(pagenum int64) (*WriteGuard, error) {
	page, err := pager.GetPage(pagenum)
	if err != nil {
		return nil, err
	}
	page.WLock()
	return &WriteGuard{page: page}, nil
}

// NewPageWrite allocates a fresh page, pins it, and returns it already
// write-latched along with its page number. The caller does not need to call
// MarkDirty on the result: a brand-new page is always written through.
func (pager *Pager) NewPageWrite() (*WriteGuard, int64, error) {
	page, err := pager.GetNewPage()
	if err != nil {
		return nil, NoPage, err
	}
	page.WLock()
	return &WriteGuard{page: page, released: false}, page.GetPageNum(), nil
}

// PageNum returns the underlying page's page number.
func (g *ReadGuard) PageNum() int64 { return g.page.GetPageNum() }

// Data returns the page's byte contents. The slice must not be retained past Release.
func (g *ReadGuard) Data() []byte { return g.page.GetData() }

// Release un-latches and unpins the page. Safe to call more than once.
func (g *ReadGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.page.RUnlock()
	_ = g.page.GetPager().PutPage(g.page)
}

// PageNum returns the underlying page's page number.
func (g *WriteGuard) PageNum() int64 { return g.page.GetPageNum() }

// Data returns the page's byte contents. The slice must not be retained past Release.
func (g *WriteGuard) Data() []byte { return g.page.GetData() }

// Update writes `size` bytes of data at `offset` into the page and marks it dirty.
func (g *WriteGuard) Update(data []byte, offset int64, size int64) {
	g.page.Update(data, offset, size)
}

// MarkDirty flags the page as changed so it is written through on eviction or close.
func (g *WriteGuard) MarkDirty() {
	g.page.SetDirty(true)
}

// Release un-latches and unpins the page; a dirty page is written on eviction or close. Safe to call more than once.
func (g *WriteGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.page.WUnlock()
	_ = g.page.GetPager().PutPage(g.page)
}
