// Package router decides, for a single request target, whether the dev server
// answers with a redirect, a file below the server root, or the SPA shell.
//
// Resolution is a fixed precedence of rules, first match wins:
//
//  1. literal redirect table (raw target, query included)
//  2. "/" and "/index.html" always get the SPA shell
//  3. a directory holding an index.html
//  4. a regular file below the root
//  5. "/assets/..." retried below "dist/"
//  6. the SPA shell
//
// A Resolver never touches the network; it only stats files in its fs.FS.
package router

import (
	"io/fs"
	"net/url"
	"path"
	"strings"
)

// Kind tells the transport which response to produce for a Target.
type Kind int

const (
	KindFallbackIndex Kind = iota
	KindRedirect
	KindDirectoryIndex
	KindStaticFile
)

func (k Kind) String() string {
	switch k {
	case KindRedirect:
		return "redirect"
	case KindDirectoryIndex:
		return "directory-index"
	case KindStaticFile:
		return "static-file"
	default:
		return "fallback-index"
	}
}

// Target is the outcome of resolving one request.
type Target struct {
	Kind Kind
	// Location is set for KindRedirect.
	Location string
	// Name is the unrooted, slash-separated file name below the server root
	// for KindDirectoryIndex and KindStaticFile.
	Name string
}

const assetsPrefix = "/assets/"

// Resolver maps request targets onto files of a server root. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	root      fs.FS
	index     string
	redirects map[string]string
}

// New returns a Resolver over root. index is the SPA shell's name inside root
// (typically "dist/index.html"); redirects maps literal request targets onto
// redirect locations.
func New(root fs.FS, index string, redirects map[string]string) *Resolver {
	r := &Resolver{
		root:      root,
		index:     path.Clean("/" + index)[1:],
		redirects: make(map[string]string, len(redirects)),
	}
	for from, to := range redirects {
		r.redirects[from] = to
	}
	return r
}

// Index returns the unrooted name of the SPA shell.
func (r *Resolver) Index() string { return r.index }

// Resolve applies the resolution rules to rawTarget, the request target as
// received on the wire.
func (r *Resolver) Resolve(rawTarget string) Target {
	if to, ok := r.redirects[rawTarget]; ok {
		return Target{Kind: KindRedirect, Location: to}
	}

	p := decode(StripQuery(rawTarget))
	if c := path.Clean("/" + p); c == "/" || c == "/index.html" {
		return Target{Kind: KindFallbackIndex}
	}

	name := unrooted(p)

	if r.isDir(name) {
		idx := path.Join(name, "index.html")
		if r.isFile(idx) {
			return Target{Kind: KindDirectoryIndex, Name: idx}
		}
	}

	if r.isFile(name) {
		return Target{Kind: KindStaticFile, Name: name}
	}

	if strings.HasPrefix(p, assetsPrefix) {
		alt := unrooted("/dist" + p)
		if r.isFile(alt) {
			return Target{Kind: KindStaticFile, Name: alt}
		}
	}

	return Target{Kind: KindFallbackIndex}
}

// ReadFile reads the named file of a resolved Target.
func (r *Resolver) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(r.root, name)
}

// ReadIndex reads the SPA shell. It is read on every call so edits show up
// without a restart.
func (r *Resolver) ReadIndex() ([]byte, error) {
	return fs.ReadFile(r.root, r.index)
}

// StripQuery cuts the query string and fragment off a request target.
func StripQuery(target string) string {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		return target[:i]
	}
	return target
}

// HasDotDot reports whether the path part of target contains a ".." segment.
func HasDotDot(target string) bool {
	for _, seg := range strings.FieldsFunc(decode(StripQuery(target)), isSlash) {
		if seg == ".." {
			return true
		}
	}
	return false
}

func isSlash(r rune) bool { return r == '/' || r == '\\' }

// decode percent-decodes p, keeping it as is when it isn't valid escaping.
func decode(p string) string {
	if u, err := url.PathUnescape(p); err == nil {
		return u
	}
	return p
}

// unrooted turns p into a valid fs.FS name. Cleaning a rooted path drops every
// ".." that would climb above the root.
func unrooted(p string) string {
	name := path.Clean("/" + p)[1:]
	if name == "" {
		return "."
	}
	return name
}

func (r *Resolver) stat(name string) (fs.FileInfo, bool) {
	if !fs.ValidPath(name) {
		return nil, false
	}
	info, err := fs.Stat(r.root, name)
	if err != nil {
		return nil, false
	}
	return info, true
}

func (r *Resolver) isDir(name string) bool {
	info, ok := r.stat(name)
	return ok && info.IsDir()
}

func (r *Resolver) isFile(name string) bool {
	info, ok := r.stat(name)
	return ok && info.Mode().IsRegular()
}
