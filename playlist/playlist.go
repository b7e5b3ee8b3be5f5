// Package playlist implements the ordered playlist with a wrap-aware
// current-index invariant (spec §4.H): CurrentIndex is nil iff Items is
// empty, otherwise 0 <= CurrentIndex < len(Items).
package playlist

// Playlist is not safe for concurrent use; callers serialise access the
// same way they do for the other small state types (spec §5).
type Playlist struct {
	items   []string
	current *int // nil means "no current item"
	loop    bool // when true, Next does not wrap — see Next doc
}

func New() *Playlist {
	return &Playlist{}
}

// Items returns a copy of the ordered filenames.
func (p *Playlist) Items() []string {
	out := make([]string, len(p.items))
	copy(out, p.items)
	return out
}

// CurrentIndex returns the current index and whether one exists.
func (p *Playlist) CurrentIndex() (int, bool) {
	if p.current == nil {
		return 0, false
	}
	return *p.current, true
}

// SetLoop controls whether Next wraps (false, default) or stops advancing
// at the end of the list (true) — "unless a loop flag says otherwise" per
// spec §4.H. The naming matches Syncplay's "loop" playback mode.
func (p *Playlist) SetLoop(loop bool) { p.loop = loop }

// Add appends a filename to the end of the list. If the list was empty,
// the new item becomes current.
func (p *Playlist) Add(name string) {
	p.items = append(p.items, name)
	if p.current == nil {
		idx := 0
		p.current = &idx
	}
}

// SetCurrentIndex sets the current item by index; it is a no-op if the
// index is out of range.
func (p *Playlist) SetCurrentIndex(i int) {
	if i < 0 || i >= len(p.items) {
		return
	}
	p.current = &i
}

// Remove deletes the item at index i, fixing up CurrentIndex per spec
// §4.H: decrement if i was before current, snap to the new end if current
// pointed past the shortened list, clear to nil if the list becomes empty.
func (p *Playlist) Remove(i int) {
	if i < 0 || i >= len(p.items) {
		return
	}
	p.items = append(p.items[:i], p.items[i+1:]...)

	if len(p.items) == 0 {
		p.current = nil
		return
	}
	if p.current == nil {
		return
	}
	cur := *p.current
	switch {
	case i < cur:
		cur--
	case i == cur && cur >= len(p.items):
		cur = len(p.items) - 1
	}
	if cur >= len(p.items) {
		cur = len(p.items) - 1
	}
	if cur < 0 {
		cur = 0
	}
	p.current = &cur
}

// Next advances to the next item. At the end it wraps to 0 by default;
// after SetLoop(true) it holds at the last index instead.
func (p *Playlist) Next() {
	if len(p.items) == 0 {
		return
	}
	cur, _ := p.CurrentIndex()
	if cur+1 >= len(p.items) {
		if p.loop {
			return // hold at end
		}
		zero := 0
		p.current = &zero
		return
	}
	next := cur + 1
	p.current = &next
}

// Previous moves to the previous item, wrapping to len-1 at the start.
func (p *Playlist) Previous() {
	if len(p.items) == 0 {
		return
	}
	cur, _ := p.CurrentIndex()
	if cur == 0 {
		last := len(p.items) - 1
		p.current = &last
		return
	}
	prev := cur - 1
	p.current = &prev
}

// Reorder moves exactly one item from index `from` to index `to`,
// adjusting CurrentIndex so it continues to designate the same logical
// item (spec §4.H).
func (p *Playlist) Reorder(from, to int) {
	n := len(p.items)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return
	}

	item := p.items[from]
	p.items = append(p.items[:from], p.items[from+1:]...)
	out := make([]string, 0, n)
	out = append(out, p.items[:to]...)
	out = append(out, item)
	out = append(out, p.items[to:]...)
	p.items = out

	if p.current != nil {
		cur := *p.current
		switch {
		case cur == from:
			cur = to
		case from < cur && cur <= to:
			cur--
		case to <= cur && cur < from:
			cur++
		}
		p.current = &cur
	}
}

// Len reports the number of items.
func (p *Playlist) Len() int { return len(p.items) }
