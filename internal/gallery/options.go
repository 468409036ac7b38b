// Package gallery attaches a lightbox to the media elements of a page.
package gallery

// DefaultSelector marks the elements that take part in the gallery.
const DefaultSelector = ".glightbox"

// Options configures the lightbox. The JSON form is what the page hands to its
// lightbox widget.
type Options struct {
	Selector        string `json:"selector"`
	TouchNavigation bool   `json:"touchNavigation"`
	Loop            bool   `json:"loop"`
	AutoplayVideos  bool   `json:"autoplayVideos"`
}

// DefaultOptions enables swipe navigation, wrap-around and video autoplay.
func DefaultOptions() Options {
	return Options{
		Selector:        DefaultSelector,
		TouchNavigation: true,
		Loop:            true,
		AutoplayVideos:  true,
	}
}
