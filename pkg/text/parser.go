// Package text parses user supplied Spotify references into bare IDs.
package text

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Reference kinds.
const (
	KindPlaylist = "playlist"
	KindTrack    = "track"
	KindUser     = "user"
)

var (
	// ErrInvalidReference is returned when a string is neither a Spotify URL,
	// a Spotify URI nor a bare ID.
	ErrInvalidReference = errors.New("invalid spotify reference")

	// ErrKindMismatch is returned when a URL or URI names another kind of
	// Spotify object than the one requested.
	ErrKindMismatch = errors.New("spotify reference has the wrong kind")

	spotifyIDRegex = regexp.MustCompile(`^[0-9A-Za-z]+$`)
)

// Parser extracts Spotify IDs from links, URIs and bare IDs.
type Parser struct{}

// NewParser creates a new reference parser.
func NewParser() *Parser {
	return &Parser{}
}

// ExtractID returns the ID of a Spotify object of the given kind. It accepts
// open.spotify.com links (tracking parameters and locale prefixes are
// ignored), spotify:<kind>:<id> URIs and bare IDs.
func (p *Parser) ExtractID(raw, kind string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidReference
	}

	switch {
	case strings.HasPrefix(raw, "spotify:"):
		return p.fromURI(raw, kind)
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return p.fromURL(raw, kind)
	}

	if !spotifyIDRegex.MatchString(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, raw)
	}
	return raw, nil
}

// ExtractPlaylistID is ExtractID for playlists.
func (p *Parser) ExtractPlaylistID(raw string) (string, error) {
	return p.ExtractID(raw, KindPlaylist)
}

func (p *Parser) fromURI(raw, kind string) (string, error) {
	// spotify:playlist:ID or the legacy spotify:user:NAME:playlist:ID
	parts := strings.Split(raw, ":")
	for i := 1; i+1 < len(parts); i++ {
		if parts[i] != kind {
			continue
		}
		if i+2 != len(parts) {
			break
		}
		if id := parts[i+1]; spotifyIDRegex.MatchString(id) {
			return id, nil
		}
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, raw)
	}

	if len(parts) >= 3 {
		return "", fmt.Errorf("%w: %q is not a %s", ErrKindMismatch, raw, kind)
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReference, raw)
}

func (p *Parser) fromURL(raw, kind string) (string, error) {
	cleaned := p.cleanURL(raw)
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, raw)
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	if !p.isSpotifyHost(u.Host) {
		return "", fmt.Errorf("%w: %q is not an open.spotify.com link", ErrInvalidReference, raw)
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	// Skip locale prefixes such as /intl-de/.
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	for i := 0; i+1 < len(segments); i++ {
		if segments[i] != kind {
			continue
		}
		if id := segments[i+1]; spotifyIDRegex.MatchString(id) {
			return id, nil
		}
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, raw)
	}

	if len(segments) >= 2 {
		return "", fmt.Errorf("%w: %q is not a %s", ErrKindMismatch, raw, kind)
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReference, raw)
}

// cleanURL trims trailing punctuation and drops tracking parameters. It
// returns an empty string for anything that is not an absolute http(s) URL.
func (p *Parser) cleanURL(rawURL string) string {
	rawURL = strings.TrimRight(rawURL, ".,!?;")

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}

	q := u.Query()
	for _, param := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "si", "pi"} {
		q.Del(param)
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""

	return u.String()
}

func (p *Parser) isSpotifyHost(host string) bool {
	host = strings.ToLower(host)
	return host == "open.spotify.com" || host == "play.spotify.com"
}
