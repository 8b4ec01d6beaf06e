// Package vaulttest runs an in-memory Vault transit engine behind an
// httptest server. Keys are real ed25519 keys, so signatures it returns
// verify against the public keys it reports.
package vaulttest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Request is a request observed by the server.
type Request struct {
	Method string
	Path   string
	Token  string
	Body   map[string]interface{}
}

type transitKey struct {
	versions []ed25519.PrivateKey
}

type override struct {
	status int
	body   string
}

// Server is a fake Vault. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	tokens    map[string]bool
	mounts    map[string][]string
	keys      map[string]*transitKey
	overrides map[string]override
	requests  []Request
	delay     time.Duration
	creates   int

	invalidTokenStatus int
}

// New starts a fake Vault accepting the given tokens and stops it when the
// test ends.
func New(t testing.TB, tokens ...string) *Server {
	s := newServer(tokens)
	s.Server = httptest.NewServer(s)
	t.Cleanup(s.Close)
	return s
}

// NewTLS is like New but serves HTTPS with a self-signed certificate, see
// httptest.Server.Certificate.
func NewTLS(t testing.TB, tokens ...string) *Server {
	s := newServer(tokens)
	s.Server = httptest.NewTLSServer(s)
	t.Cleanup(s.Close)
	return s
}

func newServer(tokens []string) *Server {
	s := &Server{
		tokens:             make(map[string]bool),
		mounts:             make(map[string][]string),
		keys:               make(map[string]*transitKey),
		overrides:          make(map[string]override),
		invalidTokenStatus: http.StatusForbidden,
	}
	for _, tok := range tokens {
		s.tokens[tok] = true
	}
	return s
}

// AddToken registers an additional valid token.
func (s *Server) AddToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = true
}

// SetInvalidTokenStatus sets the status returned for unknown tokens. Vault
// itself answers 403.
func (s *Server) SetInvalidTokenStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidTokenStatus = status
}

// CreateKey creates a key directly, bypassing HTTP.
func (s *Server) CreateKey(mount, name string) ed25519.PublicKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.createLocked(strings.Trim(mount, "/"), name)
	return k.versions[len(k.versions)-1].Public().(ed25519.PublicKey)
}

// ImportKey installs a key with a known public key for version 1.
func (s *Server) ImportKey(mount, name string, priv ed25519.PrivateKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mount = strings.Trim(mount, "/")
	id := mount + "/" + name
	if _, ok := s.keys[id]; !ok {
		s.mounts[mount] = append(s.mounts[mount], name)
	}
	s.keys[id] = &transitKey{versions: []ed25519.PrivateKey{priv}}
}

// RotateKey adds a new version to an existing key and returns its public key.
func (s *Server) RotateKey(mount, name string) ed25519.PublicKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.keys[strings.Trim(mount, "/")+"/"+name]
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	k.versions = append(k.versions, priv)
	return priv.Public().(ed25519.PublicKey)
}

// LatestPublicKey returns the newest public key of a key, or nil if absent.
func (s *Server) LatestPublicKey(mount, name string) ed25519.PublicKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[strings.Trim(mount, "/")+"/"+name]
	if !ok {
		return nil
	}
	return k.versions[len(k.versions)-1].Public().(ed25519.PublicKey)
}

// Override makes every request with method to path (without the /v1/
// prefix) answer status with body instead of being served.
func (s *Server) Override(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+strings.Trim(path, "/")] = override{status: status, body: body}
}

// ClearOverride removes an override.
func (s *Server) ClearOverride(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, method+" "+strings.Trim(path, "/"))
}

// SetDelay delays every response.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Creates returns the number of create requests that actually created a key.
func (s *Server) Creates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/"), "/")
	method := r.Method
	if method == http.MethodGet && r.URL.Query().Get("list") == "true" {
		method = "LIST"
	}

	var body map[string]interface{}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	token := r.Header.Get("X-Vault-Token")

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: method, Path: path, Token: token, Body: body})
	delay := s.delay
	ov, overridden := s.overrides[method+" "+path]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if overridden {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(ov.status)
		_, _ = w.Write([]byte(ov.body))
		return
	}

	if path == "sys/health" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"initialized": true, "sealed": false, "standby": false})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tokens[token] {
		writeErrors(w, s.invalidTokenStatus, "permission denied")
		return
	}

	if path == "auth/token/lookup-self" && method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{"id": token, "policies": []string{"default"}},
		})
		return
	}

	mount, op, name, ok := splitTransitPath(path)
	if !ok {
		writeErrors(w, http.StatusNotFound, "no handler for route")
		return
	}

	switch {
	case op == "keys" && method == "LIST":
		names := s.mounts[mount]
		if len(names) == 0 {
			writeErrors(w, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{"keys": names},
		})

	case op == "key" && method == http.MethodGet:
		k, ok := s.keys[mount+"/"+name]
		if !ok {
			writeErrors(w, http.StatusNotFound)
			return
		}
		versions := make(map[string]interface{}, len(k.versions))
		for i, priv := range k.versions {
			versions[strconv.Itoa(i+1)] = map[string]interface{}{
				"name":          "ed25519",
				"public_key":    base64.StdEncoding.EncodeToString(priv.Public().(ed25519.PublicKey)),
				"creation_time": time.Now().UTC().Format(time.RFC3339Nano),
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{
				"name":           name,
				"type":           "ed25519",
				"latest_version": len(k.versions),
				"keys":           versions,
			},
		})

	case op == "key" && method == http.MethodPost:
		if keyType, ok := body["type"]; ok && keyType != "ed25519" {
			writeErrors(w, http.StatusBadRequest, fmt.Sprintf("unsupported key type %v", keyType))
			return
		}
		s.createLocked(mount, name)
		w.WriteHeader(http.StatusNoContent)

	case op == "rotate" && method == http.MethodPost:
		k, ok := s.keys[mount+"/"+name]
		if !ok {
			writeErrors(w, http.StatusBadRequest, "key not found")
			return
		}
		_, priv, _ := ed25519.GenerateKey(rand.Reader)
		k.versions = append(k.versions, priv)
		w.WriteHeader(http.StatusNoContent)

	case op == "sign" && method == http.MethodPost:
		k, ok := s.keys[mount+"/"+name]
		if !ok {
			writeErrors(w, http.StatusBadRequest, "signing key not found")
			return
		}
		input, _ := body["input"].(string)
		payload, err := base64.StdEncoding.DecodeString(input)
		if err != nil {
			writeErrors(w, http.StatusBadRequest, "unable to decode input as base64")
			return
		}
		version := len(k.versions)
		sig := ed25519.Sign(k.versions[version-1], payload)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{
				"signature":   fmt.Sprintf("vault:v%d:%s", version, base64.StdEncoding.EncodeToString(sig)),
				"key_version": version,
			},
		})

	default:
		writeErrors(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

// createLocked creates a key unless it exists. Creation is idempotent as in Vault.
func (s *Server) createLocked(mount, name string) *transitKey {
	id := mount + "/" + name
	if k, ok := s.keys[id]; ok {
		return k
	}
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	k := &transitKey{versions: []ed25519.PrivateKey{priv}}
	s.keys[id] = k
	s.mounts[mount] = append(s.mounts[mount], name)
	s.creates++
	return k
}

// splitTransitPath splits "{mount}/keys", "{mount}/keys/{name}",
// "{mount}/keys/{name}/rotate" and "{mount}/sign/{name}".
func splitTransitPath(path string) (mount, op, name string, ok bool) {
	parts := strings.Split(path, "/")
	n := len(parts)
	switch {
	case n >= 2 && parts[n-1] == "keys":
		return strings.Join(parts[:n-1], "/"), "keys", "", true
	case n >= 4 && parts[n-1] == "rotate" && parts[n-3] == "keys":
		return strings.Join(parts[:n-3], "/"), "rotate", parts[n-2], true
	case n >= 3 && parts[n-2] == "keys":
		return strings.Join(parts[:n-2], "/"), "key", parts[n-1], true
	case n >= 3 && parts[n-2] == "sign":
		return strings.Join(parts[:n-2], "/"), "sign", parts[n-1], true
	}
	return "", "", "", false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, errs ...string) {
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, status, map[string]interface{}{"errors": errs})
}
