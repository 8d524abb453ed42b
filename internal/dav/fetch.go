package dav

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/cardsync/pkg/vcard"
)

// RemoteCard is the sync metadata of one fetched member.
type RemoteCard struct {
	Name       string
	ETag       string
	ModifiedAt time.Time
}

// Skipped is a member dropped during a fetch.
type Skipped struct {
	Href   string
	Reason string
}

type FetchResult struct {
	Cards   map[string]RemoteCard
	Skipped []Skipped
}

// CardWriter persists a fetched payload under a card name.
type CardWriter interface {
	WriteCard(name string, data []byte) error
}

// FetchCards downloads every member of the collection at path, writes each
// payload through w and returns the fetched cards keyed by name. Members
// without a usable name or payload, and members whose write fails, are
// dropped and reported in Skipped. A later member with the same name wins.
func (c *Client) FetchCards(ctx context.Context, path string, w CardWriter) (*FetchResult, error) {
	const op = "fetch cards"
	a, err := c.authenticate(ctx, op)
	if err != nil {
		return nil, err
	}
	body, err := c.report(ctx, op, a, path, "1", addressbookQueryBody)
	if err != nil {
		return nil, err
	}
	members, err := DecodeAddressData(body)
	if err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Op: op, Err: err}
	}

	res := &FetchResult{Cards: make(map[string]RemoteCard, len(members))}
	skip := func(href, reason string) {
		c.logger.Debug().Str("href", href).Str("reason", reason).Msg("skipping member")
		res.Skipped = append(res.Skipped, Skipped{Href: href, Reason: reason})
	}

	for _, m := range members {
		name := CardName(m.Href)
		if name == "" {
			skip(m.Href, "no usable name")
			continue
		}
		if !m.HasData {
			skip(m.Href, "missing address-data")
			continue
		}
		data := normalizePayload(m.Data)
		if err := vcard.ValidateVCard([]byte(data)); err != nil {
			c.logger.Warn().Err(err).Str("card", name).Msg("invalid vCard payload")
		}
		if err := w.WriteCard(name, []byte(data)); err != nil {
			skip(m.Href, err.Error())
			continue
		}
		c.logger.Debug().Str("card", name).Func(func(e *zerolog.Event) {
			if fn, err := vcard.DisplayName([]byte(data)); err == nil {
				e.Str("fn", fn)
			}
		}).Msg("card fetched")
		if _, dup := res.Cards[name]; dup {
			c.logger.Debug().Str("card", name).Str("href", m.Href).Msg("duplicate card name, keeping later member")
		}
		res.Cards[name] = RemoteCard{
			Name:       name,
			ETag:       m.ETag,
			ModifiedAt: m.LastModified,
		}
	}
	return res, nil
}

// FetchChangeToken returns the collection's getctag, or its sync-token when
// the server has no getctag. It returns "" when neither is present.
func (c *Client) FetchChangeToken(ctx context.Context, path string) (string, error) {
	const op = "fetch change token"
	a, err := c.authenticate(ctx, op)
	if err != nil {
		return "", err
	}
	body, err := c.propfind(ctx, op, a, path, "0", changeTokenBody)
	if err != nil {
		return "", err
	}
	entries, err := DecodeChangeToken(body)
	if err != nil {
		return "", &Error{Kind: KindMalformedResponse, Op: op, Err: err}
	}
	for _, e := range entries {
		if tok := e.Token(); tok != "" {
			return tok, nil
		}
	}
	return "", nil
}
