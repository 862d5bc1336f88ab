// Package transmissiontest provides an in-memory Transmission daemon for
// tests. It speaks the RPC wire protocol: a bare GET is answered 409 with a
// session id, POSTs without the current id are rejected the same way, and the
// torrent and session methods operate on an in-memory store.
package transmissiontest

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// RPCPath is the endpoint path of a stock daemon.
	RPCPath = "/transmission/rpc"

	// SessionIDHeader carries the session id in both directions.
	SessionIDHeader = "X-Transmission-Session-Id"

	// DefaultRPCVersion is the version reported by session-get.
	DefaultRPCVersion = 17
)

// Call is one RPC request accepted by the server.
type Call struct {
	Method    string
	Arguments map[string]any
	Tag       any
	SessionID string
}

// HandlerFunc overrides the built-in implementation of a method. It returns
// the result string and the arguments object of the response.
type HandlerFunc func(args map[string]any) (string, map[string]any)

// Option configures a Server.
type Option func(*Server)

// WithBasicAuth requires HTTP basic credentials on every request.
func WithBasicAuth(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
	}
}

// WithRPCVersion sets the version reported by session-get and selects the
// status codes used for torrents.
func WithRPCVersion(version int) Option {
	return func(s *Server) {
		s.rpcVersion = version
	}
}

// WithHandler replaces the implementation of method.
func WithHandler(method string, fn HandlerFunc) Option {
	return func(s *Server) {
		s.handlers[method] = fn
	}
}

// Server is a fake daemon backed by httptest.Server.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	username   string
	password   string
	rpcVersion int
	sessionID  string
	renewals   int
	gets       int
	posts      int
	calls      []Call
	handlers   map[string]HandlerFunc
	torrents   map[int]map[string]any
	nextID     int
	session    map[string]any
}

// NewServer starts a fake daemon. Call Close when done.
func NewServer(opts ...Option) *Server {
	s := &Server{
		rpcVersion: DefaultRPCVersion,
		handlers:   map[string]HandlerFunc{},
		torrents:   map[int]map[string]any{},
		nextID:     1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.session = defaultSession(s.rpcVersion)
	s.sessionID = s.newSessionID()
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	if s.username != "" || s.password != "" {
		r.Use(middleware.BasicAuth("Transmission", map[string]string{s.username: s.password}))
	}
	r.Get(RPCPath, s.handleGet)
	r.Post(RPCPath, s.handlePost)
	return r
}

// URL returns the RPC endpoint.
func (s *Server) URL() string {
	return s.Server.URL + RPCPath
}

// SessionID returns the id the server currently accepts.
func (s *Server) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// ExpireSession rotates the session id so the next POST is answered 409.
func (s *Server) ExpireSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = s.newSessionID()
}

// Requests returns the number of GET and POST requests received.
func (s *Server) Requests() (gets, posts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.posts
}

// Calls returns the RPC calls accepted so far, oldest first.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// LastCall returns the most recent accepted call.
func (s *Server) LastCall() (Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return Call{}, false
	}
	return s.calls[len(s.calls)-1], true
}

// AddTorrent seeds the store and returns the new torrent id.
func (s *Server) AddTorrent(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTorrent(name, magnetLink(hash(name), name))
}

// Torrent returns a copy of a stored torrent.
func (s *Server) Torrent(id int) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.torrents[id]
	if !ok {
		return nil, false
	}
	return copyMap(t), true
}

// Session returns a copy of the session settings.
func (s *Server) Session() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMap(s.session)
}

// newSessionID expects s.mu to be held or the server to be unpublished.
func (s *Server) newSessionID() string {
	s.renewals++
	return fmt.Sprintf("session-%d-%d", s.renewals, time.Now().UnixNano())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.gets++
	id := s.sessionID
	s.mu.Unlock()

	conflict(w, id)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.posts++
	id := s.sessionID
	s.mu.Unlock()

	if r.Header.Get(SessionIDHeader) != id {
		conflict(w, id)
		return
	}

	var req struct {
		Method    string         `json:"method"`
		Arguments map[string]any `json:"arguments"`
		Tag       any            `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method:    req.Method,
		Arguments: req.Arguments,
		Tag:       req.Tag,
		SessionID: id,
	})
	handler, overridden := s.handlers[req.Method]
	s.mu.Unlock()

	var (
		result    string
		arguments map[string]any
	)
	if overridden {
		result, arguments = handler(req.Arguments)
	} else {
		result, arguments = s.dispatch(req.Method, req.Arguments)
	}
	if arguments == nil {
		arguments = map[string]any{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"result": result, "arguments": arguments}
	if req.Tag != nil {
		resp["tag"] = req.Tag
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func conflict(w http.ResponseWriter, id string) {
	w.Header().Set(SessionIDHeader, id)
	w.WriteHeader(http.StatusConflict)
	fmt.Fprintf(w, "<h1>409: Conflict</h1><p>%s: %s</p>", SessionIDHeader, id)
}

func (s *Server) dispatch(method string, args map[string]any) (string, map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch method {
	case "torrent-get":
		return s.torrentGet(args)
	case "torrent-start":
		return s.setStatus(args, s.status(4, 4))
	case "torrent-stop":
		return s.setStatus(args, s.status(0, 16))
	case "torrent-verify":
		return s.setStatus(args, s.status(2, 2))
	case "torrent-reannounce":
		return "success", nil
	case "torrent-set":
		return s.torrentSet(args)
	case "torrent-add":
		return s.torrentAdd(args)
	case "torrent-remove":
		for _, id := range s.selectIDs(args) {
			delete(s.torrents, id)
		}
		return "success", nil
	case "torrent-set-location":
		location, _ := args["location"].(string)
		if location == "" {
			return "no location", nil
		}
		for _, id := range s.selectIDs(args) {
			s.torrents[id]["downloadDir"] = location
		}
		return "success", nil
	case "session-get":
		return "success", copyMap(s.session)
	case "session-set":
		for k, v := range args {
			s.session[k] = v
		}
		return "success", nil
	case "session-stats":
		return "success", s.sessionStats()
	default:
		return "method name not recognized", nil
	}
}

// status picks the code for the configured RPC version.
func (s *Server) status(current, legacy int) int {
	if s.rpcVersion < 14 {
		return legacy
	}
	return current
}

// selectIDs resolves the ids argument: absent means every torrent, numbers
// are ids and strings are hash strings.
func (s *Server) selectIDs(args map[string]any) []int {
	raw, ok := args["ids"]
	if !ok {
		ids := make([]int, 0, len(s.torrents))
		for id := range s.torrents {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		return ids
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	default:
		items = []any{v}
	}

	var ids []int
	for _, item := range items {
		switch v := item.(type) {
		case float64:
			if _, ok := s.torrents[int(v)]; ok {
				ids = append(ids, int(v))
			}
		case string:
			for id, t := range s.torrents {
				if t["hashString"] == v {
					ids = append(ids, id)
				}
			}
		}
	}
	sort.Ints(ids)
	return ids
}

func (s *Server) setStatus(args map[string]any, status int) (string, map[string]any) {
	for _, id := range s.selectIDs(args) {
		s.torrents[id]["status"] = status
	}
	return "success", nil
}

func (s *Server) torrentGet(args map[string]any) (string, map[string]any) {
	rawFields, ok := args["fields"].([]any)
	if !ok || len(rawFields) == 0 {
		return "no fields specified", nil
	}

	torrents := []any{}
	for _, id := range s.selectIDs(args) {
		t := s.torrents[id]
		out := map[string]any{}
		for _, f := range rawFields {
			name, _ := f.(string)
			if v, ok := t[name]; ok {
				out[name] = v
			}
		}
		torrents = append(torrents, out)
	}
	return "success", map[string]any{"torrents": torrents}
}

func (s *Server) torrentSet(args map[string]any) (string, map[string]any) {
	for _, id := range s.selectIDs(args) {
		for k, v := range args {
			if k == "ids" {
				continue
			}
			s.torrents[id][k] = v
		}
	}
	return "success", nil
}

func (s *Server) torrentAdd(args map[string]any) (string, map[string]any) {
	filename, _ := args["filename"].(string)
	metainfo, _ := args["metainfo"].(string)
	if filename == "" && metainfo == "" {
		return "no filename or metainfo specified", nil
	}

	source := filename
	if source == "" {
		source = metainfo
	}
	h := hash(source)
	for _, t := range s.torrents {
		if t["hashString"] == h {
			return "success", map[string]any{"torrent-duplicate": summary(t)}
		}
	}

	name := displayName(filename)
	if name == "" {
		name = "torrent-" + h[:8]
	}
	link := filename
	if !strings.HasPrefix(link, "magnet:") {
		link = magnetLink(h, name)
	}
	id := s.addTorrent(name, link)
	t := s.torrents[id]
	t["hashString"] = h
	if dir, ok := args["download-dir"].(string); ok {
		t["downloadDir"] = dir
	}
	if paused, ok := args["paused"].(float64); ok && paused != 0 {
		t["status"] = s.status(0, 16)
	}
	return "success", map[string]any{"torrent-added": summary(t)}
}

// addTorrent expects s.mu to be held.
func (s *Server) addTorrent(name, magnet string) int {
	id := s.nextID
	s.nextID++
	s.torrents[id] = map[string]any{
		"id":          id,
		"name":        name,
		"hashString":  hash(name),
		"status":      s.status(4, 4),
		"doneDate":    0,
		"haveValid":   0,
		"totalSize":   1 << 20,
		"percentDone": 0,
		"downloadDir": s.session["download-dir"],
		"magnetLink":  magnet,
		"error":       0,
		"errorString": "",
	}
	return id
}

func (s *Server) sessionStats() map[string]any {
	active, paused := 0, 0
	for _, t := range s.torrents {
		if t["status"] == s.status(0, 16) {
			paused++
		} else {
			active++
		}
	}
	return map[string]any{
		"activeTorrentCount": active,
		"pausedTorrentCount": paused,
		"torrentCount":       len(s.torrents),
		"downloadSpeed":      0,
		"uploadSpeed":        0,
		"cumulative-stats": map[string]any{
			"uploadedBytes":   0,
			"downloadedBytes": 0,
			"filesAdded":      s.nextID - 1,
			"sessionCount":    1,
			"secondsActive":   60,
		},
		"current-stats": map[string]any{
			"uploadedBytes":   0,
			"downloadedBytes": 0,
			"filesAdded":      s.nextID - 1,
			"sessionCount":    1,
			"secondsActive":   60,
		},
	}
}

func defaultSession(rpcVersion int) map[string]any {
	return map[string]any{
		"rpc-version":              rpcVersion,
		"rpc-version-minimum":      1,
		"version":                  "4.0.6 (fake)",
		"config-dir":               "/var/lib/transmission",
		"download-dir":             "/downloads",
		"peer-limit-global":        200,
		"peer-limit-per-torrent":   50,
		"speed-limit-down":         100,
		"speed-limit-down-enabled": false,
		"speed-limit-up":           100,
		"speed-limit-up-enabled":   false,
		"alt-speed-enabled":        false,
	}
}

func summary(t map[string]any) map[string]any {
	return map[string]any{
		"id":         t["id"],
		"name":       t["name"],
		"hashString": t["hashString"],
	}
}

func displayName(filename string) string {
	if strings.HasPrefix(filename, "magnet:?") {
		if q, err := url.ParseQuery(strings.TrimPrefix(filename, "magnet:?")); err == nil {
			return q.Get("dn")
		}
		return ""
	}
	if i := strings.LastIndexAny(filename, "/\\"); i >= 0 {
		filename = filename[i+1:]
	}
	return strings.TrimSuffix(filename, ".torrent")
}

func magnetLink(hash, name string) string {
	return "magnet:?xt=urn:btih:" + hash + "&dn=" + url.QueryEscape(name)
}

func hash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
