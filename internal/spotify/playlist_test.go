package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"

	"bettershuffle/internal/core"
)

// fakePlaylistAPI serves a single playlist's items and records every write.
type fakePlaylistAPI struct {
	mutex    sync.Mutex
	tracks   []string
	writes   []string
	posts    int
	failPost map[int]int
}

func (f *fakePlaylistAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodGet {
		items := make([]string, len(f.tracks))
		for i, id := range f.tracks {
			items[i] = fmt.Sprintf(`{"track":{"type":"track","id":%q,"name":%q}}`, id, id)
		}
		fmt.Fprintf(w, `{"items":[%s],"next":null}`, strings.Join(items, ","))
		return
	}

	var body struct {
		URIs []string `json:"uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"status":400,"message":"bad body"}}`)
		return
	}
	ids := make([]string, len(body.URIs))
	for i, uri := range body.URIs {
		ids[i] = strings.TrimPrefix(uri, "spotify:track:")
	}

	switch r.Method {
	case http.MethodPut:
		f.writes = append(f.writes, fmt.Sprintf("PUT %d", len(ids)))
		f.tracks = ids
	case http.MethodPost:
		f.posts++
		if status, ok := f.failPost[f.posts]; ok {
			f.writes = append(f.writes, fmt.Sprintf("POST %d failed", len(ids)))
			w.WriteHeader(status)
			fmt.Fprintf(w, `{"error":{"status":%d,"message":"nope"}}`, status)
			return
		}
		f.writes = append(f.writes, fmt.Sprintf("POST %d", len(ids)))
		f.tracks = append(f.tracks, ids...)
	}

	w.WriteHeader(http.StatusCreated)
	fmt.Fprint(w, `{"snapshot_id":"snap"}`)
}

func trackIDRange(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%d", i)
	}
	return ids
}

func TestReplacePlaylistTracks_Batches(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		writes []string
	}{
		{"Empty playlist", 0, []string{"PUT 0"}},
		{"Exactly one batch", 100, []string{"PUT 100"}},
		{"One past the batch limit", 101, []string{"PUT 100", "POST 1"}},
		{"Several batches", 250, []string{"PUT 100", "POST 100", "POST 50"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakePlaylistAPI{tracks: []string{"old1", "old2"}}
			client := newTestClient(t, api)

			ids := trackIDRange(tt.count)
			if err := client.ReplacePlaylistTracks(context.Background(), "pl1", ids); err != nil {
				t.Fatalf("ReplacePlaylistTracks() error = %v", err)
			}

			if !slices.Equal(api.writes, tt.writes) {
				t.Errorf("writes = %v, want %v", api.writes, tt.writes)
			}
			if !slices.Equal(api.tracks, ids) {
				t.Errorf("playlist holds %d tracks, want %d in order", len(api.tracks), len(ids))
			}
		})
	}
}

func TestReplacePlaylistTracks_RetriesTransientBatch(t *testing.T) {
	api := &fakePlaylistAPI{failPost: map[int]int{1: http.StatusServiceUnavailable}}
	client := newTestClient(t, api)

	ids := trackIDRange(250)
	if err := client.ReplacePlaylistTracks(context.Background(), "pl1", ids); err != nil {
		t.Fatalf("ReplacePlaylistTracks() error = %v", err)
	}

	want := []string{"PUT 100", "POST 100 failed", "POST 100", "POST 50"}
	if !slices.Equal(api.writes, want) {
		t.Errorf("writes = %v, want %v", api.writes, want)
	}
	if !slices.Equal(api.tracks, ids) {
		t.Errorf("playlist holds %d tracks, want all %d in order", len(api.tracks), len(ids))
	}
}

func TestReplacePlaylistTracks_RestoresOnFailure(t *testing.T) {
	api := &fakePlaylistAPI{
		tracks:   []string{"old1", "old2"},
		failPost: map[int]int{2: http.StatusForbidden},
	}
	client := newTestClient(t, api)

	err := client.ReplacePlaylistTracks(context.Background(), "pl1", trackIDRange(250))

	var remote *core.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("ReplacePlaylistTracks() error = %v, want *core.RemoteError", err)
	}
	if core.IsTransient(err) {
		t.Error("a rejected batch should not be reported as transient")
	}

	want := []string{"PUT 100", "POST 100", "POST 50 failed", "PUT 2"}
	if !slices.Equal(api.writes, want) {
		t.Errorf("writes = %v, want %v", api.writes, want)
	}
	if !slices.Equal(api.tracks, []string{"old1", "old2"}) {
		t.Errorf("playlist = %v, want the previous contents restored", api.tracks)
	}
}

func TestFindPlaylistByName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"alice"}`)
	})
	mux.HandleFunc("/users/alice/playlists", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") == "2" {
			fmt.Fprint(w, `{"items":[{"id":"p3","name":"better shuffle","owner":{"id":"alice"}}],"next":null}`)
			return
		}
		fmt.Fprintf(w, `{"items":[
			{"id":"p1","name":"better shuffle","owner":{"id":"bob"}},
			{"id":"p2","name":"Better Shuffle","owner":{"id":"alice"}}
		],"next":"http://%s/users/alice/playlists?offset=2&limit=2"}`, r.Host)
	})

	tests := []struct {
		name     string
		owner    string
		playlist string
		wantID   string
		found    bool
	}{
		{"Owned match on a later page", "alice", "better shuffle", "p3", true},
		{"Empty owner resolves to the current user", "", "better shuffle", "p3", true},
		{"Name match is exact", "alice", "Better Shuffle", "p2", true},
		{"No match", "alice", "missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, mux)

			id, found, err := client.FindPlaylistByName(context.Background(), tt.owner, tt.playlist)
			if err != nil {
				t.Fatalf("FindPlaylistByName() error = %v", err)
			}
			if id != tt.wantID || found != tt.found {
				t.Errorf("FindPlaylistByName() = %q, %v, want %q, %v", id, found, tt.wantID, tt.found)
			}
		})
	}
}

func TestCreatePlaylist(t *testing.T) {
	var body struct {
		Name          string `json:"name"`
		Public        bool   `json:"public"`
		Collaborative bool   `json:"collaborative"`
		Description   string `json:"description"`
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/alice/playlists" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"new1","name":"better shuffle"}`)
	}))

	id, err := client.CreatePlaylist(context.Background(), "alice", "better shuffle", true, false, "")
	if err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}
	if id != "new1" {
		t.Errorf("CreatePlaylist() = %s, want new1", id)
	}
	if body.Name != "better shuffle" || !body.Public || body.Collaborative || body.Description != "" {
		t.Errorf("request body = %+v, want a public non-collaborative playlist with no description", body)
	}
}
