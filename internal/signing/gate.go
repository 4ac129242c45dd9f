package signing

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// GatePrefix is prepended to every Gate v4 REST path
const GatePrefix = "/api/v4"

// Gate signs v4 REST requests with HMAC-SHA512
type Gate struct {
	APIKey string
	Secret string
	Now    Clock
}

// Sign returns the raw query and headers. path must include the /api/v4 prefix.
func (s Gate) Sign(method, path string, query url.Values, body []byte) (string, http.Header) {
	method = strings.ToUpper(method)
	rawQuery := sortedQuery(query, true)
	ts := strconv.FormatInt(s.Now.now().Unix(), 10)

	bodyHash := sha512.Sum512(body)
	payload := method + "\n" + path + "\n" + rawQuery + "\n" + hex.EncodeToString(bodyHash[:]) + "\n" + ts

	headers := http.Header{}
	headers.Set("KEY", s.APIKey)
	headers.Set("Timestamp", ts)
	headers.Set("SIGN", s.Signature(payload))
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")
	return rawQuery, headers
}

// Signature computes the hex HMAC-SHA512 of payload
func (s Gate) Signature(payload string) string {
	mac := hmac.New(sha512.New, []byte(s.Secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
