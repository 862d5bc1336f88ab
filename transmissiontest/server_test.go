package transmissiontest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
)

func post(t *testing.T, s *Server, sessionID, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, s.URL(), bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set(SessionIDHeader, sessionID)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp, decoded
}

func TestGetIssuesSessionID(t *testing.T) {
	s := NewServer()
	defer s.Close()

	resp, err := http.Get(s.URL())
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get(SessionIDHeader); got != s.SessionID() {
		t.Errorf("Expected session id %q, got %q", s.SessionID(), got)
	}
}

func TestPostRequiresSessionID(t *testing.T) {
	s := NewServer()
	defer s.Close()

	resp, _ := post(t, s, "wrong", `{"method":"session-get"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", resp.StatusCode)
	}

	resp, body := post(t, s, s.SessionID(), `{"method":"session-get","tag":7}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["result"] != "success" {
		t.Errorf("Expected success, got %v", body["result"])
	}
	if body["tag"] != float64(7) {
		t.Errorf("Expected tag 7 to be echoed, got %v", body["tag"])
	}

	if calls := s.Calls(); len(calls) != 1 {
		t.Errorf("Expected 1 recorded call, got %d", len(calls))
	}
}

func TestExpireSession(t *testing.T) {
	s := NewServer()
	defer s.Close()

	old := s.SessionID()
	s.ExpireSession()
	if s.SessionID() == old {
		t.Fatal("Expected a new session id")
	}

	resp, _ := post(t, s, old, `{"method":"session-get"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for expired id, got %d", resp.StatusCode)
	}
}

func TestBasicAuth(t *testing.T) {
	s := NewServer(WithBasicAuth("admin", "secret"))
	defer s.Close()

	resp, err := http.Get(s.URL())
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, s.URL(), nil)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 with credentials, got %d", resp.StatusCode)
	}
}

func TestTorrentLifecycle(t *testing.T) {
	s := NewServer()
	defer s.Close()
	id := s.SessionID()

	_, body := post(t, s, id, `{"method":"torrent-add","arguments":{"filename":"http://example.com/debian.torrent","download-dir":"/data"}}`)
	added, ok := body["arguments"].(map[string]any)["torrent-added"].(map[string]any)
	if !ok {
		t.Fatalf("Expected torrent-added, got %v", body)
	}
	if added["name"] != "debian" {
		t.Errorf("Expected name debian, got %v", added["name"])
	}

	_, body = post(t, s, id, `{"method":"torrent-add","arguments":{"filename":"http://example.com/debian.torrent"}}`)
	if _, ok := body["arguments"].(map[string]any)["torrent-duplicate"]; !ok {
		t.Errorf("Expected torrent-duplicate, got %v", body)
	}

	post(t, s, id, `{"method":"torrent-stop","arguments":{"ids":[1]}}`)
	torrent, ok := s.Torrent(1)
	if !ok {
		t.Fatal("Expected torrent 1 to exist")
	}
	if torrent["status"] != 0 {
		t.Errorf("Expected stopped status 0, got %v", torrent["status"])
	}
	if torrent["downloadDir"] != "/data" {
		t.Errorf("Expected download dir /data, got %v", torrent["downloadDir"])
	}

	_, body = post(t, s, id, `{"method":"torrent-get","arguments":{"fields":["id","name"]}}`)
	torrents := body["arguments"].(map[string]any)["torrents"].([]any)
	if len(torrents) != 1 {
		t.Fatalf("Expected 1 torrent, got %d", len(torrents))
	}
	if _, ok := torrents[0].(map[string]any)["status"]; ok {
		t.Error("Expected only the requested fields")
	}

	post(t, s, id, `{"method":"torrent-remove","arguments":{"ids":[1]}}`)
	if _, ok := s.Torrent(1); ok {
		t.Error("Expected torrent 1 to be removed")
	}
}

func TestLegacyStatusCodes(t *testing.T) {
	s := NewServer(WithRPCVersion(13))
	defer s.Close()

	s.AddTorrent("ubuntu")
	post(t, s, s.SessionID(), `{"method":"torrent-stop"}`)

	torrent, _ := s.Torrent(1)
	if torrent["status"] != 16 {
		t.Errorf("Expected legacy stopped status 16, got %v", torrent["status"])
	}
}

func TestUnknownMethodAndOverride(t *testing.T) {
	s := NewServer(WithHandler("free-space", func(args map[string]any) (string, map[string]any) {
		return "success", map[string]any{"path": args["path"], "size-bytes": 42}
	}))
	defer s.Close()

	_, body := post(t, s, s.SessionID(), `{"method":"no-such-method"}`)
	if body["result"] != "method name not recognized" {
		t.Errorf("Expected unrecognized method result, got %v", body["result"])
	}

	_, body = post(t, s, s.SessionID(), `{"method":"free-space","arguments":{"path":"/data"}}`)
	args := body["arguments"].(map[string]any)
	if args["size-bytes"] != float64(42) {
		t.Errorf("Expected overridden handler, got %v", args)
	}
}
