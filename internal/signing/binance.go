package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultRecvWindow is the recvWindow sent when the caller sets none, in ms
const DefaultRecvWindow = 5000

// Binance signs query strings with HMAC-SHA256 for the spot, margin, futures
// and portfolio margin APIs.
type Binance struct {
	APIKey     string
	Secret     string
	RecvWindow int64
	Now        Clock
}

// Sign returns the signed query string and the headers for a request with params.
// The signature is always the last parameter.
func (s Binance) Sign(params url.Values) (string, http.Header) {
	values := url.Values{}
	for k, v := range params {
		values[k] = append([]string(nil), v...)
	}
	if values.Get("recvWindow") == "" {
		window := s.RecvWindow
		if window <= 0 {
			window = DefaultRecvWindow
		}
		values.Set("recvWindow", strconv.FormatInt(window, 10))
	}
	values.Set("timestamp", strconv.FormatInt(s.Now.now().UnixMilli(), 10))

	query := values.Encode()
	query += "&signature=" + s.Signature(query)

	headers := http.Header{}
	headers.Set("X-MBX-APIKEY", s.APIKey)
	return query, headers
}

// Signature computes the hex HMAC-SHA256 of payload
func (s Binance) Signature(payload string) string {
	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
