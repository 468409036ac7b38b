package terminal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"text/tabwriter"

	"file-gallery/internal/browse"
	"file-gallery/internal/gallery"
	"file-gallery/internal/observability"
	"file-gallery/internal/upload"
)

// Page reloads a directory listing from the server and prints it. Each
// reload also binds a lightbox over the listing's media.
type Page struct {
	ctx    context.Context
	url    string
	client upload.Doer
	out    io.Writer
	logger *observability.Logger

	mu       sync.Mutex
	lightbox *gallery.Lightbox
	listing  *browse.Listing
	done     chan struct{}
	once     sync.Once
}

// NewPage targets the directory at url. client may be nil.
func NewPage(ctx context.Context, url string, client upload.Doer, out io.Writer, logger *observability.Logger) *Page {
	if client == nil {
		client = http.DefaultClient
	}
	return &Page{
		ctx:      ctx,
		url:      url,
		client:   client,
		out:      out,
		logger:   logger,
		lightbox: gallery.New(gallery.DefaultOptions()),
		done:     make(chan struct{}),
	}
}

// Reload fetches and prints the listing. Failures are logged.
func (p *Page) Reload() {
	defer p.once.Do(func() { close(p.done) })

	listing, err := p.Fetch(p.ctx)
	if err != nil {
		p.logger.Error(p.ctx).Err(err).Str("url", p.url).Msg("Reloading listing failed")
		return
	}

	p.mu.Lock()
	p.listing = listing
	bound := p.lightbox.Bind(listing.GalleryItems())
	p.mu.Unlock()

	p.logger.Debug(p.ctx).Int("bound", bound).Int("media", p.lightbox.Len()).Msg("Gallery refreshed")
	if err := Print(p.out, listing); err != nil {
		p.logger.Warn(p.ctx).Err(err).Msg("Printing listing failed")
	}
}

// Reloaded is closed after the first reload finished.
func (p *Page) Reloaded() <-chan struct{} {
	return p.done
}

// Listing returns the listing of the last successful reload.
func (p *Page) Listing() *browse.Listing {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listing
}

// Lightbox returns the gallery bound to the reloaded listings.
func (p *Page) Lightbox() *gallery.Lightbox {
	return p.lightbox
}

// Fetch requests the JSON form of the directory listing.
func (p *Page) Fetch(ctx context.Context) (*browse.Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch listing: status %d", resp.StatusCode)
	}

	var listing browse.Listing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	return &listing, nil
}

// Print writes listing as a table, folders first then media then the rest.
func Print(w io.Writer, listing *browse.Listing) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "/%s\t%d folders, %d files, %s\n", listing.Path, listing.DirCount, listing.FileCount, listing.HumanTotal())
	for _, e := range listing.Items {
		if e.IsDir {
			fmt.Fprintf(tw, "%s/\t-\t%s\n", e.Name, e.HumanTime())
		}
	}
	for _, e := range listing.Images {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.HumanSize(), e.HumanTime())
	}
	for _, e := range listing.Items {
		if !e.IsDir {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.HumanSize(), e.HumanTime())
		}
	}
	return tw.Flush()
}
