package gallery

import (
	"slices"
	"strings"
)

// Media is the presentation kind of a gallery element.
type Media string

const (
	MediaImage Media = "image"
	MediaVideo Media = "video"
)

// Element is one node a lightbox can be bound to. ID must be stable across
// renders of the same page.
type Element interface {
	ID() string
	Href() string
	Media() Media
	Classes() []string
}

// Document finds elements by selector.
type Document interface {
	QueryAll(selector string) []Element
}

// Item is a plain Element value.
type Item struct {
	Key   string   `json:"key"`
	URL   string   `json:"url"`
	Kind  Media    `json:"kind"`
	Class []string `json:"class"`
}

func (i Item) ID() string        { return i.Key }
func (i Item) Href() string      { return i.URL }
func (i Item) Media() Media      { return i.Kind }
func (i Item) Classes() []string { return i.Class }

// ClassAttr renders the class attribute value.
func (i Item) ClassAttr() string { return strings.Join(i.Class, " ") }

// Items is an in-memory document.
type Items []Item

func (items Items) QueryAll(selector string) []Element {
	var out []Element
	for _, it := range items {
		if Matches(it, selector) {
			out = append(out, it)
		}
	}
	return out
}

// Matches reports whether el matches selector. Selectors are comma separated
// groups of compound class selectors such as ".glightbox" or ".media.video".
func Matches(el Element, selector string) bool {
	for _, group := range strings.Split(selector, ",") {
		classes := parseCompound(strings.TrimSpace(group))
		if len(classes) == 0 {
			continue
		}
		ok := true
		for _, c := range classes {
			if !slices.Contains(el.Classes(), c) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func parseCompound(s string) []string {
	if !strings.HasPrefix(s, ".") {
		return nil
	}
	var classes []string
	for _, c := range strings.Split(s[1:], ".") {
		if c == "" || strings.ContainsAny(c, " >+~[#:") {
			return nil
		}
		classes = append(classes, c)
	}
	return classes
}
