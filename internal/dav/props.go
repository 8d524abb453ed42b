package dav

import (
	"encoding/xml"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	nsDAV     = "DAV:"
	nsCardDAV = "urn:ietf:params:xml:ns:carddav"
	nsCS      = "http://calendarserver.org/ns/"
)

// multistatus is the RFC 4918 envelope shared by every query. The prop bag P
// is a concrete struct per query.
type multistatus[P any] struct {
	XMLName   xml.Name      `xml:"DAV: multistatus"`
	Responses []response[P] `xml:"DAV: response"`
}

type response[P any] struct {
	Href     string        `xml:"DAV: href"`
	Propstat []propstat[P] `xml:"DAV: propstat"`
	Status   string        `xml:"DAV: status"`
}

type propstat[P any] struct {
	Prop   P      `xml:"DAV: prop"`
	Status string `xml:"DAV: status"`
}

func decodeMultistatus[P any](op string, body []byte) ([]response[P], error) {
	var ms multistatus[P]
	if err := xml.Unmarshal(body, &ms); err != nil {
		return nil, malformed(op, err)
	}
	for i := range ms.Responses {
		r := &ms.Responses[i]
		r.Href = strings.TrimSpace(r.Href)
		r.Status = strings.TrimSpace(r.Status)
		for j := range r.Propstat {
			r.Propstat[j].Status = strings.TrimSpace(r.Propstat[j].Status)
		}
	}
	return ms.Responses, nil
}

func statusOK(s string) bool {
	return strings.HasSuffix(s, "200 OK")
}

type href struct {
	Value string `xml:"DAV: href"`
}

// RefEntry is one response of a query whose prop bag carries a single href.
type RefEntry struct {
	Href   string
	Status string
	Ref    string
}

type principalProp struct {
	CurrentUserPrincipal *href `xml:"DAV: current-user-principal"`
}

// DecodeCurrentUserPrincipal decodes a current-user-principal PROPFIND response.
func DecodeCurrentUserPrincipal(body []byte) ([]RefEntry, error) {
	resps, err := decodeMultistatus[principalProp]("decode current-user-principal", body)
	if err != nil {
		return nil, err
	}
	out := make([]RefEntry, 0, len(resps))
	for _, r := range resps {
		e := RefEntry{Href: r.Href, Status: r.Status}
		for _, ps := range r.Propstat {
			if ps.Prop.CurrentUserPrincipal == nil {
				continue
			}
			if v := strings.TrimSpace(ps.Prop.CurrentUserPrincipal.Value); v != "" {
				e.Ref, e.Status = v, firstNonEmpty(ps.Status, r.Status)
				break
			}
		}
		out = append(out, e)
	}
	return out, nil
}

type homeSetProp struct {
	AddressbookHomeSet *href `xml:"urn:ietf:params:xml:ns:carddav addressbook-home-set"`
}

// DecodeAddressbookHomeSet decodes an addressbook-home-set PROPFIND response.
func DecodeAddressbookHomeSet(body []byte) ([]RefEntry, error) {
	resps, err := decodeMultistatus[homeSetProp]("decode addressbook-home-set", body)
	if err != nil {
		return nil, err
	}
	out := make([]RefEntry, 0, len(resps))
	for _, r := range resps {
		e := RefEntry{Href: r.Href, Status: r.Status}
		for _, ps := range r.Propstat {
			if ps.Prop.AddressbookHomeSet == nil {
				continue
			}
			if v := strings.TrimSpace(ps.Prop.AddressbookHomeSet.Value); v != "" {
				e.Ref, e.Status = v, firstNonEmpty(ps.Status, r.Status)
				break
			}
		}
		out = append(out, e)
	}
	return out, nil
}

type resourceTypeProp struct {
	ResourceType struct {
		Collection  *struct{} `xml:"DAV: collection"`
		Addressbook *struct{} `xml:"urn:ietf:params:xml:ns:carddav addressbook"`
	} `xml:"DAV: resourcetype"`
}

// ResourceEntry is one member of a depth 1 resourcetype PROPFIND.
type ResourceEntry struct {
	Href        string
	Status      string
	Addressbook bool
}

// IsAddressbook reports whether the member is the addressbook collection:
// a 200 OK status and an addressbook resource type.
func (e ResourceEntry) IsAddressbook() bool {
	return statusOK(e.Status) && e.Addressbook
}

// DecodeResourceTypes decodes a resourcetype PROPFIND response.
func DecodeResourceTypes(body []byte) ([]ResourceEntry, error) {
	resps, err := decodeMultistatus[resourceTypeProp]("decode resourcetype", body)
	if err != nil {
		return nil, err
	}
	out := make([]ResourceEntry, 0, len(resps))
	for _, r := range resps {
		e := ResourceEntry{Href: r.Href, Status: r.Status}
		for i, ps := range r.Propstat {
			if i == 0 {
				e.Status = firstNonEmpty(ps.Status, r.Status)
			}
			if ps.Prop.ResourceType.Addressbook != nil {
				e.Addressbook = true
				e.Status = firstNonEmpty(ps.Status, r.Status)
				break
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// httpDate is a getlastmodified value. Values are RFC 2822 dates and are
// normalized to UTC. An empty element decodes to the zero time; callers
// decide whether that is acceptable for the propstat it appeared in.
type httpDate struct {
	time.Time
}

func (d *httpDate) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := dec.DecodeElement(&s, &start); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := mail.ParseDate(s)
	if err != nil {
		return fmt.Errorf("parse getlastmodified %q: %w", s, err)
	}
	d.Time = t.UTC()
	return nil
}

type addressDataProp struct {
	GetETag         string    `xml:"DAV: getetag"`
	GetLastModified *httpDate `xml:"DAV: getlastmodified"`
	AddressData     *string   `xml:"urn:ietf:params:xml:ns:carddav address-data"`
}

// MemberEntry is one member of an addressbook-query REPORT.
type MemberEntry struct {
	Href         string
	Status       string
	ETag         string
	LastModified time.Time
	Data         string
	HasData      bool
}

// DecodeAddressData decodes an addressbook-query REPORT response. Props
// split across several propstats are merged.
func DecodeAddressData(body []byte) ([]MemberEntry, error) {
	resps, err := decodeMultistatus[addressDataProp]("decode address-data", body)
	if err != nil {
		return nil, err
	}
	out := make([]MemberEntry, 0, len(resps))
	for _, r := range resps {
		e := MemberEntry{Href: r.Href, Status: r.Status}
		for _, ps := range r.Propstat {
			p := ps.Prop
			if p.GetLastModified != nil && p.GetLastModified.IsZero() && statusOK(firstNonEmpty(ps.Status, r.Status)) {
				return nil, malformed("decode address-data", fmt.Errorf("%s: empty getlastmodified", r.Href))
			}
			if e.Status == "" || (statusOK(ps.Status) && !statusOK(e.Status)) {
				e.Status = ps.Status
			}
			if v := strings.TrimSpace(p.GetETag); v != "" && e.ETag == "" {
				e.ETag = v
			}
			if p.GetLastModified != nil && !p.GetLastModified.IsZero() && e.LastModified.IsZero() {
				e.LastModified = p.GetLastModified.Time
			}
			if p.AddressData != nil && !e.HasData {
				e.Data, e.HasData = *p.AddressData, true
			}
		}
		out = append(out, e)
	}
	return out, nil
}

type changeTokenProp struct {
	GetCTag   string `xml:"http://calendarserver.org/ns/ getctag"`
	SyncToken string `xml:"DAV: sync-token"`
}

// TokenEntry is one response of a getctag/sync-token PROPFIND.
type TokenEntry struct {
	Href      string
	CTag      string
	SyncToken string
}

// Token returns the getctag value, falling back to the sync-token.
func (e TokenEntry) Token() string {
	return firstNonEmpty(e.CTag, e.SyncToken)
}

// DecodeChangeToken decodes a getctag/sync-token PROPFIND response.
func DecodeChangeToken(body []byte) ([]TokenEntry, error) {
	resps, err := decodeMultistatus[changeTokenProp]("decode change token", body)
	if err != nil {
		return nil, err
	}
	out := make([]TokenEntry, 0, len(resps))
	for _, r := range resps {
		e := TokenEntry{Href: r.Href}
		for _, ps := range r.Propstat {
			if v := strings.TrimSpace(ps.Prop.GetCTag); v != "" && e.CTag == "" {
				e.CTag = v
			}
			if v := strings.TrimSpace(ps.Prop.SyncToken); v != "" && e.SyncToken == "" {
				e.SyncToken = v
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
