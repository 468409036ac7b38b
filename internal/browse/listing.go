package browse

import (
	"io/fs"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Entry is one visible child of a directory.
type Entry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
	IsDir   bool      `json:"is_dir"`
	Kind    Kind      `json:"type"`
	Icon    string    `json:"icon"`
}

// HumanSize renders Size like "1.2 MB".
func (e Entry) HumanSize() string {
	return humanize.Bytes(uint64(e.Size))
}

// HumanTime renders ModTime relative to now, e.g. "3 hours ago".
func (e Entry) HumanTime() string {
	return humanize.Time(e.ModTime)
}

// Crumb is one segment of the breadcrumb trail.
type Crumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Listing is the rendered content of a directory. Images are split out of Items
// so the page can lay them out as a gallery.
type Listing struct {
	Path      string  `json:"path"`
	Crumbs    []Crumb `json:"crumbs"`
	Items     []Entry `json:"items"`
	Images    []Entry `json:"images"`
	TotalSize int64   `json:"total_size"`
	FileCount int     `json:"file_count"`
	DirCount  int     `json:"dir_count"`
}

// HumanTotal renders TotalSize for display.
func (l *Listing) HumanTotal() string {
	return humanize.Bytes(uint64(l.TotalSize))
}

// Href returns the escaped URL path of a child of the listed directory.
func (l *Listing) Href(name string) string {
	return EscapePath("/" + strings.TrimPrefix(path.Join(l.Path, name), "/"))
}

// EscapePath percent-encodes a slash separated path for use in a link, so
// names containing '#', '?' or '%' survive the round trip.
func EscapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

// Hidden reports whether a name is kept out of listings.
func Hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// NewListing builds the listing of dir (a slash separated path relative to the
// root) from the stat results of its children. Hidden names are dropped;
// directories sort before files, then by case-insensitive name.
func NewListing(dir string, children []fs.FileInfo) *Listing {
	dir = strings.Trim(path.Clean("/"+dir), "/")

	sorted := make([]fs.FileInfo, 0, len(children))
	for _, fi := range children {
		if !Hidden(fi.Name()) {
			sorted = append(sorted, fi)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IsDir() != sorted[j].IsDir() {
			return sorted[i].IsDir()
		}
		return strings.ToLower(sorted[i].Name()) < strings.ToLower(sorted[j].Name())
	})

	l := &Listing{
		Path:   dir,
		Crumbs: crumbs(dir),
		Items:  []Entry{},
		Images: []Entry{},
	}

	for _, fi := range sorted {
		entry := Entry{
			Name:    fi.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
			IsDir:   fi.IsDir(),
		}

		if fi.IsDir() {
			entry.Kind = KindFolder
			entry.Size = 0
			entry.Icon = KindFolder.Icon()
			l.DirCount++
			l.Items = append(l.Items, entry)
			continue
		}

		entry.Kind = KindOf(fi.Name())
		entry.Icon = entry.Kind.Icon()
		l.FileCount++
		l.TotalSize += fi.Size()

		if entry.Kind == KindImage {
			l.Images = append(l.Images, entry)
		} else {
			l.Items = append(l.Items, entry)
		}
	}

	return l
}

func crumbs(dir string) []Crumb {
	if dir == "" {
		return nil
	}
	parts := strings.Split(dir, "/")
	out := make([]Crumb, 0, len(parts))
	for i, p := range parts {
		out = append(out, Crumb{Name: p, Path: EscapePath("/" + strings.Join(parts[:i+1], "/") + "/")})
	}
	return out
}
