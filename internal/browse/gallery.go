package browse

import "file-gallery/internal/gallery"

// GalleryItems returns the viewable entries of the listing as lightbox elements,
// gallery images first and then the viewable rest in listing order.
func (l *Listing) GalleryItems() gallery.Items {
	items := make(gallery.Items, 0, len(l.Images))
	for _, e := range l.Images {
		items = append(items, l.galleryItem(e))
	}
	for _, e := range l.Items {
		if !e.IsDir && e.Kind.Viewable() {
			items = append(items, l.galleryItem(e))
		}
	}
	return items
}

func (l *Listing) galleryItem(e Entry) gallery.Item {
	media := gallery.MediaVideo
	if e.Kind == KindImage {
		media = gallery.MediaImage
	}
	href := l.Href(e.Name)
	return gallery.Item{
		Key:   href,
		URL:   href,
		Kind:  media,
		Class: []string{"glightbox", string(e.Kind)},
	}
}
