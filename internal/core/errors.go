package core

import (
	"errors"
	"fmt"
)

// ErrEmptyTable is returned when sampling from a table with no entries or zero total weight.
var ErrEmptyTable = errors.New("weight table is empty or has zero total weight")

// ErrSnapshotTooLarge is returned when a table expands to more items than a playlist can hold.
var ErrSnapshotTooLarge = fmt.Errorf("snapshot exceeds the %d item playlist limit", MaxPlaylistItems)

// ParseError reports a malformed weight override. Line is 1-based; 0 means unknown.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("weights line %d %q: %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("weights %q: %v", e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SourceError reports a source item that is not a playable track.
type SourceError struct {
	Index int
	ID    string
	Name  string
	Kind  ItemKind
}

func (e *SourceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("source item %d (%q) is not a playable track: %s without id", e.Index, e.Name, e.Kind)
	}
	return fmt.Sprintf("source item %d (%q, %s) is not a playable track: %s", e.Index, e.Name, e.ID, e.Kind)
}

type RemoteErrorKind int

const (
	// RemoteTransient failures may succeed on retry (network errors, throttling, 5xx)
	RemoteTransient RemoteErrorKind = iota
	// RemoteRejected failures are refusals by the service and are never retried
	RemoteRejected
)

func (k RemoteErrorKind) String() string {
	if k == RemoteTransient {
		return "transient"
	}
	return "rejected"
}

// RemoteError wraps a failure from the streaming service.
type RemoteError struct {
	Op   string
	Kind RemoteErrorKind
	Err  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsTransient reports whether err carries a transient RemoteError.
func IsTransient(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.Kind == RemoteTransient
}

// PlaybackStateError reports that a playing track was required but none was found.
type PlaybackStateError struct {
	Reason string
}

func (e *PlaybackStateError) Error() string {
	return "playback state: " + e.Reason
}

// PlaylistLookupError reports that playlist enumeration could not complete.
type PlaylistLookupError struct {
	Name string
	Err  error
}

func (e *PlaylistLookupError) Error() string {
	return fmt.Sprintf("looking up playlist %q: %v", e.Name, e.Err)
}

func (e *PlaylistLookupError) Unwrap() error { return e.Err }

// PlaylistWriteError reports a rejected create or replace operation.
type PlaylistWriteError struct {
	Op         string
	PlaylistID string
	Err        error
}

func (e *PlaylistWriteError) Error() string {
	if e.PlaylistID == "" {
		return fmt.Sprintf("%s playlist: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s playlist %s: %v", e.Op, e.PlaylistID, e.Err)
}

func (e *PlaylistWriteError) Unwrap() error { return e.Err }
