package dav

import (
	"net/url"
	"path"
	"strings"
)

// CardName derives a local card name from a member href: the last path
// segment, unescaped, without its extension. It returns "" when the href
// names a collection or yields no usable file name.
func CardName(href string) string {
	p := strings.TrimSpace(href)
	if u, err := url.Parse(p); err == nil {
		p = u.EscapedPath()
	}
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	seg, err := url.PathUnescape(path.Base(p))
	if err != nil {
		return ""
	}
	name := strings.TrimSuffix(seg, path.Ext(seg))
	if !safeSegment(name) {
		return ""
	}
	return name
}

// safeSegment reports whether s can be used as a single file name.
func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, "/\\\x00")
}

// normalizePayload strips the carriage return of every line ending.
func normalizePayload(data string) string {
	data = strings.ReplaceAll(data, "\r\n", "\n")
	return strings.TrimRight(data, "\r")
}
