package handlers

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// baseURL returns the configured public base, or one derived from the request.
func baseURL(r *http.Request, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}

func artifactURL(base, route, name string) string {
	return base + "/" + route + "/" + url.PathEscape(name)
}

// artifactName accepts either a bare artifact name or a retrieval URL or path and
// returns the name it points at. A reference with a ".." segment is returned as is so
// name validation rejects it.
func artifactName(ref string) string {
	ref = strings.TrimSpace(ref)
	if !strings.Contains(ref, "/") {
		return ref
	}
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	}
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return ref
		}
	}
	return path.Base(p)
}
