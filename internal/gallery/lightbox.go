package gallery

import (
	"errors"
	"sync"
)

// ErrUnknownElement is returned when opening an element the lightbox is not bound to.
var ErrUnknownElement = errors.New("element is not part of the gallery")

// Direction of a swipe gesture.
type Direction int

const (
	SwipeLeft Direction = iota
	SwipeRight
)

// Lightbox presents bound elements one at a time.
type Lightbox struct {
	opts Options

	mu      sync.Mutex
	items   []Element
	byID    map[string]int
	current int
	playing bool
}

// New returns an unbound, closed lightbox.
func New(opts Options) *Lightbox {
	if opts.Selector == "" {
		opts.Selector = DefaultSelector
	}
	return &Lightbox{opts: opts, byID: make(map[string]int), current: -1}
}

// Initialize binds a new lightbox to every element of doc matching opts.Selector.
// A document without matches yields an empty lightbox.
func Initialize(doc Document, opts Options) *Lightbox {
	lb := New(opts)
	lb.Bind(doc)
	return lb
}

// Bind attaches the lightbox to matching elements of doc that are not bound yet
// and returns how many were added. Binding the same document again adds nothing.
func (lb *Lightbox) Bind(doc Document) int {
	if doc == nil {
		return 0
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	added := 0
	for _, el := range doc.QueryAll(lb.opts.Selector) {
		if _, ok := lb.byID[el.ID()]; ok {
			continue
		}
		lb.byID[el.ID()] = len(lb.items)
		lb.items = append(lb.items, el)
		added++
	}
	return added
}

// Len returns the number of bound elements.
func (lb *Lightbox) Len() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return len(lb.items)
}

// Open shows the element with the given id.
func (lb *Lightbox) Open(id string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	idx, ok := lb.byID[id]
	if !ok {
		return ErrUnknownElement
	}
	lb.show(idx)
	return nil
}

// Close hides the lightbox and stops playback.
func (lb *Lightbox) Close() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.current = -1
	lb.playing = false
}

// Current returns the element on display.
func (lb *Lightbox) Current() (Element, bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.current < 0 {
		return nil, false
	}
	return lb.items[lb.current], true
}

// Playing reports whether the displayed element is a video that started on its own.
func (lb *Lightbox) Playing() bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.playing
}

// Next moves one element forward. It reports false when the lightbox is closed or
// already at the last element without looping.
func (lb *Lightbox) Next() (Element, bool) {
	return lb.step(1)
}

// Prev moves one element back, mirroring Next.
func (lb *Lightbox) Prev() (Element, bool) {
	return lb.step(-1)
}

// Swipe navigates like Prev/Next when touch navigation is enabled: a left swipe
// reveals the next element.
func (lb *Lightbox) Swipe(dir Direction) (Element, bool) {
	if !lb.opts.TouchNavigation {
		return nil, false
	}
	if dir == SwipeLeft {
		return lb.step(1)
	}
	return lb.step(-1)
}

func (lb *Lightbox) step(delta int) (Element, bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	n := len(lb.items)
	if lb.current < 0 || n == 0 {
		return nil, false
	}

	next := lb.current + delta
	if next < 0 || next >= n {
		if !lb.opts.Loop {
			return lb.items[lb.current], false
		}
		next = (next + n) % n
	}

	lb.show(next)
	return lb.items[next], true
}

func (lb *Lightbox) show(idx int) {
	lb.current = idx
	lb.playing = lb.opts.AutoplayVideos && lb.items[idx].Media() == MediaVideo
}
