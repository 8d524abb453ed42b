// Package davtest provides an in-process CardDAV server for tests.
package davtest

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Card is one addressbook member served by REPORT. An empty LastModified
// omits the property.
type Card struct {
	Href         string
	ETag         string
	LastModified string
	Data         string
}

// Server answers the discovery, change token and addressbook-query
// requests. Empty Principal, HomeSet or Collection produce an empty
// multistatus for that step.
type Server struct {
	Login  string
	Secret string

	Principal  string
	HomeSet    string
	Collection string
	CTag       string
	Cards      []Card

	// Override, when set for "METHOD path", replaces the generated response
	// body for that request.
	Override map[string]string
	// Status, when set for "METHOD path", is the response status.
	Status map[string]int
	// FailFirst answers the first n requests for "METHOD path" with a 503.
	FailFirst map[string]int

	mu       sync.Mutex
	requests []Request

	*httptest.Server
}

// Request is a recorded request.
type Request struct {
	Method string
	Path   string
	Depth  string
	Body   string
}

// New starts a server with a conventional layout rooted at /dav.
func New() *Server {
	s := &Server{
		Login:      "alice",
		Secret:     "secret",
		Principal:  "/dav/principals/alice/",
		HomeSet:    "/dav/addressbooks/alice/",
		Collection: "/dav/addressbooks/alice/contacts/",
		CTag:       "ctag-1",
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	body := string(b)
	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Depth: r.Header.Get("Depth"), Body: body})
	s.mu.Unlock()

	login, secret, ok := r.BasicAuth()
	if !ok || login != s.Login || secret != s.Secret {
		w.Header().Set("WWW-Authenticate", `Basic realm="davtest"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	key := r.Method + " " + r.URL.Path
	s.mu.Lock()
	fail := s.FailFirst[key] > 0
	if fail {
		s.FailFirst[key]--
	}
	s.mu.Unlock()
	if fail {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	if code, ok := s.Status[key]; ok {
		http.Error(w, http.StatusText(code), code)
		return
	}
	if out, ok := s.Override[key]; ok {
		writeMultiStatus(w, out)
		return
	}

	switch {
	case r.Method == "REPORT":
		writeMultiStatus(w, s.cardsXML())
	case r.Method != "PROPFIND":
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	case strings.Contains(body, "current-user-principal"):
		writeMultiStatus(w, refXML(r.URL.Path, s.Principal, `<D:current-user-principal><D:href>%s</D:href></D:current-user-principal>`))
	case strings.Contains(body, "addressbook-home-set"):
		writeMultiStatus(w, refXML(r.URL.Path, s.HomeSet, `<C:addressbook-home-set><D:href>%s</D:href></C:addressbook-home-set>`))
	case strings.Contains(body, "getctag"):
		writeMultiStatus(w, refXML(r.URL.Path, s.CTag, `<CS:getctag>%s</CS:getctag>`))
	case strings.Contains(body, "resourcetype"):
		writeMultiStatus(w, s.collectionsXML(r.URL.Path))
	default:
		http.Error(w, "bad request", http.StatusBadRequest)
	}
}

func writeMultiStatus(w http.ResponseWriter, inner string) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = io.WriteString(w, xml.Header)
	_, _ = io.WriteString(w, `<D:multistatus xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:carddav" xmlns:CS="http://calendarserver.org/ns/">`)
	_, _ = io.WriteString(w, inner)
	_, _ = io.WriteString(w, `</D:multistatus>`)
}

func refXML(path, value, propFmt string) string {
	if value == "" {
		return ""
	}
	return Response(path, "HTTP/1.1 200 OK", fmt.Sprintf(propFmt, escape(value)))
}

func (s *Server) collectionsXML(path string) string {
	if s.Collection == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(Response(path, "HTTP/1.1 200 OK", `<D:resourcetype><D:collection/></D:resourcetype>`))
	b.WriteString(Response(s.Collection, "HTTP/1.1 200 OK", `<D:resourcetype><D:collection/><C:addressbook/></D:resourcetype>`))
	return b.String()
}

func (s *Server) cardsXML() string {
	var b strings.Builder
	for _, c := range s.Cards {
		prop := fmt.Sprintf(`<D:getetag>%s</D:getetag>`, escape(c.ETag))
		if c.LastModified != "" {
			prop += fmt.Sprintf(`<D:getlastmodified>%s</D:getlastmodified>`, escape(c.LastModified))
		}
		prop += fmt.Sprintf(`<C:address-data>%s</C:address-data>`, escape(c.Data))
		b.WriteString(Response(c.Href, "HTTP/1.1 200 OK", prop))
	}
	return b.String()
}

// Response renders one multistatus response with a single propstat.
func Response(href, status, prop string) string {
	return fmt.Sprintf(`<D:response><D:href>%s</D:href><D:propstat><D:prop>%s</D:prop><D:status>%s</D:status></D:propstat></D:response>`,
		escape(href), prop, status)
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
