package crypto

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectedSig(t *testing.T, secret, message string) string {
	key, err := base64.StdEncoding.DecodeString(secret)
	require.NoError(t, err)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHeadersAtDeterministic(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("topsecret"))
	auth := &HMACAuth{Key: "key-1", Secret: secret, Passphrase: "pp"}

	h := auth.HeadersAt("GET", "/data/orders", "", 1700000000)
	assert.Equal(t, "key-1", h["POLY_API_KEY"])
	assert.Equal(t, "1700000000", h["POLY_TIMESTAMP"])
	assert.Equal(t, "pp", h["POLY_PASSPHRASE"])
	assert.Equal(t, expectedSig(t, secret, "1700000000GET/data/orders"), h["POLY_SIGNATURE"])
}

func TestSignRestoresBody(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("topsecret"))
	auth := &HMACAuth{Key: "key-1", Secret: secret, Passphrase: "pp"}

	body := `{"price":"0.65"}`
	req, err := http.NewRequest(http.MethodPost, "https://clob.example.com/order", bytes.NewBufferString(body))
	require.NoError(t, err)

	require.NoError(t, auth.Sign(req))
	assert.NotEmpty(t, req.Header.Get("POLY_SIGNATURE"))

	got, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(got), "signing must not consume the body")
}

func TestStringRedactsSecret(t *testing.T) {
	auth := &HMACAuth{Key: "key-12345", Secret: "supersecret", Passphrase: "pp"}
	s := auth.String()
	assert.NotContains(t, s, "supersecret")
	assert.NotContains(t, s, "key-12345")
}
