package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUnknownKey is returned when no published key matches a token's "kid".
var ErrUnknownKey = errors.New("unknown signing key")

// minRefetch bounds how often an unknown kid can trigger a fetch while the cached set is fresh.
const minRefetch = 30 * time.Second

// NewKeyHTTPClient returns an instrumented HTTP client for fetching signing keys.
func NewKeyHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// RemoteKeySet serves RSA public keys published as a JSON object mapping kid to a PEM encoded
// X.509 certificate. Keys are cached for the response's Cache-Control max-age, or for the
// configured refresh interval when the header is absent. It is safe for concurrent use.
type RemoteKeySet struct {
	url     string
	client  *http.Client
	refresh time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiry    time.Time
	lastFetch time.Time

	fetchMu sync.Mutex
}

var _ KeySource = (*RemoteKeySet)(nil)

// NewRemoteKeySet creates a key set that fetches from url using client.
func NewRemoteKeySet(url string, client *http.Client, refresh time.Duration) *RemoteKeySet {
	return &RemoteKeySet{
		url:     url,
		client:  client,
		refresh: refresh,
		now:     time.Now,
	}
}

// Key returns the public key for kid, fetching the key set when the cache is stale or kid is unknown.
func (s *RemoteKeySet) Key(ctx context.Context, kid string) (any, error) {
	key, fresh, refetch := s.lookup(kid)
	if key != nil && fresh {
		return key, nil
	}
	if !refetch {
		return nil, ErrUnknownKey
	}

	if err := s.fetch(ctx); err != nil {
		if key != nil {
			// Serve the stale key rather than failing every request during a provider outage.
			return key, nil
		}
		return nil, err
	}

	key, _, _ = s.lookup(kid)
	if key == nil {
		return nil, ErrUnknownKey
	}
	return key, nil
}

func (s *RemoteKeySet) lookup(kid string) (key *rsa.PublicKey, fresh, refetch bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	key = s.keys[kid]
	fresh = now.Before(s.expiry)
	refetch = !fresh || now.Sub(s.lastFetch) >= minRefetch
	return key, fresh, refetch
}

func (s *RemoteKeySet) fetch(ctx context.Context) error {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	// Another caller may have refreshed while we waited.
	s.mu.RLock()
	recent := s.now().Sub(s.lastFetch) < time.Second
	s.mu.RUnlock()
	if recent {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("build key request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch keys: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch keys: unexpected status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decode keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, certPEM := range certs {
		pub, err := parseCertificateKey(certPEM)
		if err != nil {
			return fmt.Errorf("parse key %s: %w", kid, err)
		}
		keys[kid] = pub
	}

	ttl := s.refresh
	if maxAge, ok := parseMaxAge(resp.Header.Get("Cache-Control")); ok {
		ttl = maxAge
	}

	now := s.now()
	s.mu.Lock()
	s.keys = keys
	s.expiry = now.Add(ttl)
	s.lastFetch = now
	s.mu.Unlock()
	return nil
}

func parseCertificateKey(certPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, errors.New("no PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate key is not RSA")
	}
	return pub, nil
}

func parseMaxAge(cacheControl string) (time.Duration, bool) {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		v, found := strings.CutPrefix(directive, "max-age=")
		if !found {
			continue
		}
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	return 0, false
}
