// Package config holds the in-memory configuration shape consumed by the
// request lifecycle engine and the loader that builds it from a config
// file on disk.
package config

// Method is one of the HTTP verbs a Location can allow.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodDelete Method = "DELETE"
)

// Location is a URI path-prefix rule selecting server behavior.
type Location struct {
	// Path is the URI prefix this location matches, e.g. "/" or "/cgi-bin".
	Path string

	// Root overrides the server's global Root for requests under this
	// location. Empty means "use the global root".
	Root string

	// Methods is the set of HTTP methods allowed at this prefix. Defaults
	// to {GET} when unset in the config file.
	Methods []Method

	// Index is the filename served when a request resolves to a directory.
	// Defaults to "index.html" when unset.
	Index string

	// CGIExtension marks this location as CGI-enabled, and CGIRoot is the
	// directory CGI scripts are resolved under. Both empty means "not a
	// CGI location".
	CGIExtension string
	CGIRoot      string

	// UploadDir, when non-empty, engages the upload handler for POST
	// requests under this location.
	UploadDir string

	// Autoindex enables HTML directory listings when no index file is
	// present.
	Autoindex bool

	// Redirect, when non-nil, makes this location unconditionally respond
	// with a 301/302 redirect before any method dispatch.
	Redirect *Redirect
}

// Redirect is the target of a `return <code> <url>` location directive.
type Redirect struct {
	Code int
	URL  string
}

// AllowsMethod reports whether m is in the location's allowed method set.
func (l *Location) AllowsMethod(m Method) bool {
	for _, allowed := range l.Methods {
		if allowed == m {
			return true
		}
	}
	return false
}

// Config is the immutable, load-time-validated server configuration.
type Config struct {
	// Listen is the set of TCP ports the server binds to.
	Listen []int

	// Root is the global document root, used by any Location without its
	// own Root override.
	Root string

	// ClientMaxBodySize is the maximum accepted request body size, in
	// bytes.
	ClientMaxBodySize int64

	// Locations is ordered as read from the config file; routing always
	// picks the longest matching prefix regardless of order.
	Locations []Location

	// ErrorPages maps a status code to a custom error page file path.
	ErrorPages map[int]string
}

// ErrorPage returns the configured custom error page path for code, if
// any.
func (c *Config) ErrorPage(code int) (string, bool) {
	p, ok := c.ErrorPages[code]
	return p, ok
}
