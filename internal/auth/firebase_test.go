package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/haat/internal/domain"
)

const testProject = "haat-test"

type signer struct {
	kid string
	key *rsa.PrivateKey
}

func newSigner(t *testing.T, kid string) (*signer, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken.system.gserviceaccount.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return &signer{kid: kid, key: key}, string(certPEM)
}

func (s *signer) sign(t *testing.T, claims FirebaseClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid
	signed, err := token.SignedString(s.key)
	require.NoError(t, err)
	return signed
}

func validClaims(sub string) FirebaseClaims {
	now := time.Now()
	return FirebaseClaims{
		Email: "asha.rao@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "https://securetoken.google.com/" + testProject,
			Audience:  jwt.ClaimStrings{testProject},
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

// certServer serves the signer's certificate and counts fetches.
func certServer(t *testing.T, certs map[string]string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "public, max-age=600, must-revalidate")
		_ = json.NewEncoder(w).Encode(certs)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFirebaseVerifier_Verify(t *testing.T) {
	ctx := context.Background()
	s, certPEM := newSigner(t, "kid-1")
	srv, hits := certServer(t, map[string]string{"kid-1": certPEM})

	users := newMemUsers()
	v, err := NewFirebaseVerifier(testProject, users, WithCertsURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	user, err := v.Verify(ctx, s.sign(t, validClaims("fb-uid-1")))
	require.NoError(t, err)
	assert.Equal(t, "fb-uid-1", user.UID)
	assert.Equal(t, "asha.rao", user.Name)
	assert.Equal(t, domain.AuthMethodFirebase, user.AuthMethod)

	// The same subject resolves to the same user; keys come from cache.
	again, err := v.Verify(ctx, s.sign(t, validClaims("fb-uid-1")))
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, 1, users.created)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestFirebaseVerifier_Rejections(t *testing.T) {
	ctx := context.Background()
	s, certPEM := newSigner(t, "kid-1")
	srv, _ := certServer(t, map[string]string{"kid-1": certPEM})
	stranger, _ := newSigner(t, "kid-2")

	v, err := NewFirebaseVerifier(testProject, newMemUsers(), WithCertsURL(srv.URL))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token func() string
		want  *domain.Error
	}{
		{
			name: "expired",
			token: func() string {
				c := validClaims("u")
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
				return s.sign(t, c)
			},
			want: ErrTokenExpired,
		},
		{
			name: "wrong audience",
			token: func() string {
				c := validClaims("u")
				c.Audience = jwt.ClaimStrings{"another-project"}
				return s.sign(t, c)
			},
			want: ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			token: func() string {
				c := validClaims("u")
				c.Issuer = "https://accounts.example.com"
				return s.sign(t, c)
			},
			want: ErrInvalidToken,
		},
		{
			name:  "unknown key",
			token: func() string { return stranger.sign(t, validClaims("u")) },
			want:  ErrInvalidToken,
		},
		{
			name:  "no subject",
			token: func() string { return s.sign(t, validClaims("")) },
			want:  ErrInvalidToken,
		},
		{
			name:  "garbage",
			token: func() string { return "not-a-token" },
			want:  ErrInvalidToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(ctx, tt.token())
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
		})
	}
}

func TestFirebaseVerifier_RefreshesOnRotation(t *testing.T) {
	ctx := context.Background()
	old, oldPEM := newSigner(t, "kid-old")
	rotated, rotatedPEM := newSigner(t, "kid-new")

	certs := map[string]string{"kid-old": oldPEM}
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) > 1 {
			certs = map[string]string{"kid-old": oldPEM, "kid-new": rotatedPEM}
		}
		_ = json.NewEncoder(w).Encode(certs)
	}))
	defer srv.Close()

	v, err := NewFirebaseVerifier(testProject, newMemUsers(), WithCertsURL(srv.URL))
	require.NoError(t, err)

	_, err = v.Verify(ctx, old.sign(t, validClaims("u1")))
	require.NoError(t, err)

	_, err = v.Verify(ctx, rotated.sign(t, validClaims("u2")))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestNewFirebaseVerifier_RequiresProject(t *testing.T) {
	_, err := NewFirebaseVerifier("", newMemUsers())
	assert.Error(t, err)
}

func TestMaxAge(t *testing.T) {
	assert.Equal(t, 600*time.Second, maxAge("public, max-age=600, must-revalidate"))
	assert.Equal(t, time.Hour, maxAge(""))
	assert.Equal(t, time.Hour, maxAge("max-age=abc"))
}
