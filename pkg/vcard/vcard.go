package vcard

import (
	"errors"
	"fmt"
	"io"
	"strings"

	govcard "github.com/emersion/go-vcard"
)

// ValidateVCard checks that raw holds at least one vCard with a VERSION
// and an FN property.
func ValidateVCard(raw []byte) error {
	if len(raw) == 0 {
		return errors.New("empty vCard data")
	}

	content := string(raw)
	if !strings.Contains(content, "BEGIN:VCARD") {
		return errors.New("vCard data missing BEGIN:VCARD")
	}
	if !strings.Contains(content, "END:VCARD") {
		return errors.New("vCard data missing END:VCARD")
	}

	cards, err := parseAll(raw)
	if err != nil {
		return fmt.Errorf("vCard parsing failed: %w", err)
	}
	if len(cards) == 0 {
		return errors.New("no valid vCard found after parsing")
	}

	for i, c := range cards {
		if c.Value(govcard.FieldVersion) == "" {
			return fmt.Errorf("vCard %d missing VERSION", i)
		}
		if c.Value(govcard.FieldFormattedName) == "" {
			return fmt.Errorf("vCard %d missing FN", i)
		}
	}
	return nil
}

// DisplayName returns the FN of the first card in raw, built from N when
// FN is absent.
func DisplayName(raw []byte) (string, error) {
	cards, err := parseAll(raw)
	if err != nil {
		return "", err
	}
	if len(cards) == 0 {
		return "", errors.New("no vcard found")
	}
	c := cards[0]
	if fn := c.Value(govcard.FieldFormattedName); fn != "" {
		return fn, nil
	}
	if name := c.Name(); name != nil {
		fn := strings.Join(strings.Fields(strings.Join([]string{
			name.GivenName, name.AdditionalName, name.FamilyName,
		}, " ")), " ")
		if fn != "" {
			return fn, nil
		}
	}
	return "", errors.New("vcard has neither FN nor N")
}

func parseAll(b []byte) ([]govcard.Card, error) {
	// go-vcard expects CRLF line endings
	content := strings.ReplaceAll(string(b), "\n", "\r\n")
	content = strings.ReplaceAll(content, "\r\r\n", "\r\n")

	dec := govcard.NewDecoder(strings.NewReader(content))
	var out []govcard.Card
	for {
		c, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode vCard: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}
