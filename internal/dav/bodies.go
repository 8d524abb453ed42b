package dav

import "encoding/xml"

// Request bodies. Each query has a fixed template.
const (
	currentUserPrincipalBody = xml.Header +
		`<D:propfind xmlns:D="DAV:">` +
		`<D:prop><D:current-user-principal/></D:prop>` +
		`</D:propfind>`

	addressbookHomeSetBody = xml.Header +
		`<D:propfind xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:carddav">` +
		`<D:prop><C:addressbook-home-set/></D:prop>` +
		`</D:propfind>`

	resourceTypeBody = xml.Header +
		`<D:propfind xmlns:D="DAV:">` +
		`<D:prop><D:resourcetype/></D:prop>` +
		`</D:propfind>`

	changeTokenBody = xml.Header +
		`<D:propfind xmlns:D="DAV:" xmlns:CS="http://calendarserver.org/ns/">` +
		`<D:prop><CS:getctag/><D:sync-token/></D:prop>` +
		`</D:propfind>`

	addressbookQueryBody = xml.Header +
		`<C:addressbook-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:carddav">` +
		`<D:prop><D:getetag/><D:getlastmodified/><C:address-data/></D:prop>` +
		`</C:addressbook-query>`
)
