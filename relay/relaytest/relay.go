// Package relaytest runs an in-memory relay for tests.
package relaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzhttp"
)

type node struct {
	password string
	meta     json.RawMessage
}

// Relay stores node metadata in memory and serves the relay API over HTTP.
type Relay struct {
	token string

	mu    sync.Mutex
	nodes map[string]*node
	calls map[string]int

	srv *httptest.Server
}

// New starts a relay that requires token on authenticated calls. It is closed
// when the test ends.
func New(tb testing.TB, token string) *Relay {
	r := &Relay{
		token: token,
		nodes: make(map[string]*node),
		calls: make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/getSlaveMeta", r.getMeta)
	mux.HandleFunc("GET /api/slaves", r.list)
	mux.HandleFunc("POST /api/editSlaveMeta", r.editMeta)
	r.srv = httptest.NewServer(gzhttp.GzipHandler(mux))
	tb.Cleanup(r.srv.Close)
	return r
}

func (r *Relay) URL() string {
	return r.srv.URL
}

// Register makes a node known to the relay.
func (r *Relay) Register(id, password string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[id]; !ok {
		r.nodes[id] = &node{password: password}
	}
}

// SetMeta stores meta for a node as if it was published by it.
func (r *Relay) SetMeta(id string, meta json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok {
		n = &node{}
		r.nodes[id] = n
	}
	n.meta = meta
}

// Meta returns the metadata last stored for a node.
func (r *Relay) Meta(id string) json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.nodes[id]; ok {
		return n.meta
	}
	return nil
}

// Calls returns how many requests were served for path.
func (r *Relay) Calls(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[path]
}

type credentials struct {
	InstanceID string          `json:"instanceID"`
	Password   string          `json:"password"`
	Meta       json.RawMessage `json:"meta"`
}

// authorize checks the token and credentials and returns the node under the lock.
func (r *Relay) authorize(w http.ResponseWriter, req *http.Request) (*node, *credentials, bool) {
	r.calls[req.URL.Path]++
	if req.Header.Get("x-access-token") != r.token {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return nil, nil, false
	}
	var creds credentials
	if err := json.NewDecoder(req.Body).Decode(&creds); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	n, ok := r.nodes[creds.InstanceID]
	if !ok {
		http.Error(w, "unknown instance", http.StatusNotFound)
		return nil, nil, false
	}
	if n.password != creds.Password {
		http.Error(w, "invalid password", http.StatusUnauthorized)
		return nil, nil, false
	}
	return n, &creds, true
}

func (r *Relay) getMeta(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, _, ok := r.authorize(w, req)
	if !ok {
		return
	}
	if len(n.meta) == 0 {
		return
	}
	// metadata is returned as a string holding JSON
	body, err := json.Marshal(string(n.meta))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (r *Relay) editMeta(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, creds, ok := r.authorize(w, req)
	if !ok {
		return
	}
	n.meta = creds.Meta
	w.WriteHeader(http.StatusOK)
}

type entry struct {
	Unique string          `json:"unique"`
	Meta   json.RawMessage `json:"meta"`
}

func (r *Relay) list(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[req.URL.Path]++
	entries := make(map[string]entry, len(r.nodes))
	for id, n := range r.nodes {
		meta := n.meta
		if len(meta) == 0 {
			meta = json.RawMessage(`{}`)
		}
		entries[id] = entry{Unique: id, Meta: meta}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
