package videoio

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Location is either a file path or a network URL.
type Location struct {
	path string
	url  *url.URL
}

// FileLocation points at a local file.
func FileLocation(path string) Location {
	return Location{path: path}
}

// NetworkLocation points at a network resource such as rtsp:// or rtmp://.
func NetworkLocation(u *url.URL) Location {
	return Location{url: u}
}

// ParseLocation treats strings with a URL scheme as network locations and
// everything else as file paths. Single letter schemes are taken to be
// Windows drive letters.
func ParseLocation(s string) Location {
	if i := strings.Index(s, "://"); i > 1 {
		if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.Scheme != "file" {
			return NetworkLocation(u)
		}
	}
	return FileLocation(strings.TrimPrefix(s, "file://"))
}

// IsNetwork reports whether l is a URL.
func (l Location) IsNetwork() bool { return l.url != nil }

// URL returns the URL of a network location, nil for files.
func (l Location) URL() *url.URL { return l.url }

// Path returns the file path, or the URL path for network locations.
func (l Location) Path() string {
	if l.url != nil {
		return l.url.Path
	}
	return l.path
}

// Ext returns the lowercase file extension without the dot.
func (l Location) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(l.Path())), ".")
}

// String returns the path or URL passed to the engine.
func (l Location) String() string {
	if l.url != nil {
		return l.url.String()
	}
	return l.path
}
