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

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/haat/internal/domain"
)

// FirebaseCertsURL serves the x509 certificates that sign Firebase ID tokens.
const FirebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// FirebaseClaims are the ID token claims the server reads.
type FirebaseClaims struct {
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	jwt.RegisteredClaims
}

// FirebaseVerifier verifies Firebase ID tokens (RS256) and resolves the
// subject to a user, creating one on first sight.
type FirebaseVerifier struct {
	projectID  string
	certsURL   string
	httpClient *http.Client
	users      domain.UserStore
	now        func() time.Time

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

var _ Verifier = (*FirebaseVerifier)(nil)

// FirebaseOption configures a FirebaseVerifier.
type FirebaseOption func(*FirebaseVerifier)

// WithCertsURL overrides the certificate endpoint.
func WithCertsURL(url string) FirebaseOption {
	return func(v *FirebaseVerifier) { v.certsURL = url }
}

// WithHTTPClient sets the client used to fetch certificates.
func WithHTTPClient(c *http.Client) FirebaseOption {
	return func(v *FirebaseVerifier) { v.httpClient = c }
}

// NewFirebaseVerifier creates a verifier for the given Firebase project.
func NewFirebaseVerifier(projectID string, users domain.UserStore, opts ...FirebaseOption) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("firebase project ID is required")
	}
	v := &FirebaseVerifier{
		projectID:  projectID,
		certsURL:   FirebaseCertsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		users:      users,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*domain.User, error) {
	const op = "auth.firebase"

	claims := &FirebaseClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, tokenError(op, errors.Is(err, jwt.ErrTokenExpired), err)
	}
	if claims.Subject == "" {
		return nil, tokenError(op, false, errors.New("token has no subject"))
	}

	name := claims.Name
	if name == "" && claims.Email != "" {
		name, _, _ = strings.Cut(claims.Email, "@")
	}
	if name == "" {
		name = "User"
	}

	return v.users.FindOrCreate(ctx, domain.Identity{
		UID:    claims.Subject,
		Email:  claims.Email,
		Phone:  claims.PhoneNumber,
		Name:   name,
		Method: domain.AuthMethodFirebase,
	})
}

// key returns the public key for kid, refreshing the certificate set when
// it has expired or does not know kid.
func (v *FirebaseVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := v.now().Before(v.expires)
	v.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok = v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func (v *FirebaseVerifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build certificate request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch signing certificates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch signing certificates: status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("failed to decode signing certificates: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, certPEM := range certs {
		key, err := parseCertificateKey(certPEM)
		if err != nil {
			return fmt.Errorf("certificate %s: %w", kid, err)
		}
		keys[kid] = key
	}

	v.mu.Lock()
	v.keys = keys
	v.expires = v.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	v.mu.Unlock()
	return nil
}

func parseCertificateKey(certPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, errors.New("invalid PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate key is not RSA")
	}
	return key, nil
}

// maxAge reads max-age from a Cache-Control header, defaulting to one hour.
func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Hour
}
