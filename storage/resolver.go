package storage

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Location is a path inside a bucket.
type Location struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
}

func (l Location) String() string {
	return l.Bucket + "/" + l.Path
}

var ErrUnresolvable = errors.New("url is not a managed asset")

// Resolver maps public asset URLs of the form .../object/public/<bucket>/<path...>
// back to a Location. Host and Buckets narrow what counts as ours; left empty
// they accept any host or bucket that fits the template.
type Resolver struct {
	Host    string
	Buckets []string
}

// NewResolver derives the accepted host from the public storage base URL.
func NewResolver(publicBase string, buckets ...string) Resolver {
	r := Resolver{Buckets: buckets}
	if u, err := url.Parse(publicBase); err == nil {
		r.Host = u.Host
	}
	return r
}

// Resolve returns the location of rawURL, or false when the URL is not one of
// our assets. A false result is never fatal; the URL is simply not deletable by us.
func (r Resolver) Resolve(rawURL string) (Location, bool) {
	loc, err := r.Check(rawURL)
	return loc, err == nil
}

// Check is Resolve with the reason a URL was rejected, for logging.
func (r Resolver) Check(rawURL string) (Location, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Location{}, fmt.Errorf("%w: unparseable url", ErrUnresolvable)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Location{}, fmt.Errorf("%w: scheme %q", ErrUnresolvable, u.Scheme)
	}
	if r.Host != "" && !strings.EqualFold(u.Host, r.Host) {
		return Location{}, fmt.Errorf("%w: foreign host %s", ErrUnresolvable, u.Host)
	}

	idx := strings.Index(u.Path, publicObjectSegment)
	if idx < 0 {
		return Location{}, fmt.Errorf("%w: not a public object path", ErrUnresolvable)
	}

	bucket, path, _ := strings.Cut(u.Path[idx+len(publicObjectSegment):], "/")
	if bucket == "" || path == "" || strings.HasSuffix(path, "/") {
		return Location{}, fmt.Errorf("%w: missing bucket or object path", ErrUnresolvable)
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return Location{}, fmt.Errorf("%w: invalid object path %q", ErrUnresolvable, path)
		}
	}
	if len(r.Buckets) > 0 && !slices.Contains(r.Buckets, bucket) {
		return Location{}, fmt.Errorf("%w: bucket %s is not managed", ErrUnresolvable, bucket)
	}

	return Location{Bucket: bucket, Path: path}, nil
}
