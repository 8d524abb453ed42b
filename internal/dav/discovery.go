package dav

import (
	"context"
	"errors"
)

// RootPath is where discovery starts.
const RootPath = "/"

type discoveryStep struct {
	name string
	run  func(ctx context.Context, a basicAuth, path string) (string, error)
}

// Discover resolves the addressbook collection path. It walks
// current-user-principal, addressbook-home-set and the home set members in
// that order; a step that yields nothing keeps the previous path. The first
// failing step aborts the chain.
func (c *Client) Discover(ctx context.Context) (string, error) {
	a, err := c.authenticate(ctx, "discover")
	if err != nil {
		return "", err
	}

	steps := []discoveryStep{
		{name: "resolve principal", run: c.resolvePrincipal},
		{name: "resolve home set", run: c.resolveHomeSet},
		{name: "resolve collection", run: c.resolveCollection},
	}

	path := RootPath
	for _, s := range steps {
		next, err := s.run(ctx, a, path)
		if err != nil {
			return "", &Error{Kind: kindOf(err), Op: "discover", Err: err}
		}
		c.logger.Debug().
			Str("step", s.name).
			Str("from", path).
			Str("to", next).
			Msg("discovery step")
		path = next
	}
	return path, nil
}

func (c *Client) resolvePrincipal(ctx context.Context, a basicAuth, path string) (string, error) {
	const op = "resolve principal"
	body, err := c.propfind(ctx, op, a, path, "0", currentUserPrincipalBody)
	if err != nil {
		return "", err
	}
	entries, err := DecodeCurrentUserPrincipal(body)
	if err != nil {
		return "", err
	}
	return NextRef(entries, path), nil
}

func (c *Client) resolveHomeSet(ctx context.Context, a basicAuth, path string) (string, error) {
	const op = "resolve home set"
	body, err := c.propfind(ctx, op, a, path, "0", addressbookHomeSetBody)
	if err != nil {
		return "", err
	}
	entries, err := DecodeAddressbookHomeSet(body)
	if err != nil {
		return "", err
	}
	return NextRef(entries, path), nil
}

func (c *Client) resolveCollection(ctx context.Context, a basicAuth, path string) (string, error) {
	const op = "resolve collection"
	body, err := c.propfind(ctx, op, a, path, "1", resourceTypeBody)
	if err != nil {
		return "", err
	}
	entries, err := DecodeResourceTypes(body)
	if err != nil {
		return "", err
	}
	return NextCollection(entries, path), nil
}

// NextRef returns the reference carried by the first entry, or path when
// there is no entry or the first one carries no reference.
func NextRef(entries []RefEntry, path string) string {
	if len(entries) == 0 || entries[0].Ref == "" {
		return path
	}
	return entries[0].Ref
}

// NextCollection returns the href of the first addressbook member, or path
// when there is none.
func NextCollection(entries []ResourceEntry, path string) string {
	for _, e := range entries {
		if e.IsAddressbook() && e.Href != "" {
			return e.Href
		}
	}
	return path
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}
