package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestL2HeadersAt_Deterministic(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("topsecret"))
	auth := &HMACAuth{Key: "api-key", Secret: secret, Passphrase: "pass"}

	const ts = int64(1756300000)
	h1 := auth.L2HeadersAt("0xabc", "POST", "/order", `{"x":1}`, ts)
	h2 := auth.L2HeadersAt("0xabc", "POST", "/order", `{"x":1}`, ts)
	assert.Equal(t, h1, h2)

	assert.Equal(t, "0xabc", h1["POLY_ADDRESS"])
	assert.Equal(t, "api-key", h1["POLY_API_KEY"])
	assert.Equal(t, "1756300000", h1["POLY_TIMESTAMP"])
	assert.Equal(t, "pass", h1["POLY_PASSPHRASE"])

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write([]byte(`1756300000POST/order{"x":1}`))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, h1["POLY_SIGNATURE"])
}

func TestL2HeadersAt_SignatureVariesWithInput(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("topsecret"))
	auth := &HMACAuth{Key: "api-key", Secret: secret, Passphrase: "pass"}

	const ts = int64(1756300000)
	base := auth.L2HeadersAt("0xabc", "POST", "/order", "", ts)

	assert.NotEqual(t, base["POLY_SIGNATURE"],
		auth.L2HeadersAt("0xabc", "GET", "/order", "", ts)["POLY_SIGNATURE"])
	assert.NotEqual(t, base["POLY_SIGNATURE"],
		auth.L2HeadersAt("0xabc", "POST", "/order", "body", ts)["POLY_SIGNATURE"])
	assert.NotEqual(t, base["POLY_SIGNATURE"],
		auth.L2HeadersAt("0xabc", "POST", "/order", "", ts+1)["POLY_SIGNATURE"])
}

func TestL2HeadersAt_NonBase64SecretFallsBackToRawBytes(t *testing.T) {
	auth := &HMACAuth{Key: "k", Secret: "not base64!!", Passphrase: "p"}

	got := auth.L2HeadersAt("0xabc", "GET", "/ok", "", 42)
	require.NotEmpty(t, got["POLY_SIGNATURE"])

	mac := hmac.New(sha256.New, []byte("not base64!!"))
	mac.Write([]byte("42GET/ok"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, got["POLY_SIGNATURE"])
}

func TestHMACAuth_StringRedactsCredentials(t *testing.T) {
	auth := &HMACAuth{Key: "abcdef123456", Secret: "supersecretvalue"}
	s := auth.String()
	assert.Contains(t, s, "abcd****")
	assert.Contains(t, s, "supe****")
	assert.NotContains(t, s, "abcdef123456")
	assert.NotContains(t, s, "supersecretvalue")
}
