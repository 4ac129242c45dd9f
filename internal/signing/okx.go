package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"order-desk/internal/exchange"
)

// OKXTimeLayout is the ISO-8601 millisecond timestamp OKX expects
const OKXTimeLayout = "2006-01-02T15:04:05.000Z"

// OKX signs v5 REST requests
type OKX struct {
	APIKey     string
	Secret     string
	Passphrase string
	Simulated  bool
	Now        Clock
}

// NewOKX creates an OKX signer. The passphrase is mandatory.
func NewOKX(apiKey, secret, passphrase string, simulated bool) (*OKX, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, exchange.NewConfigurationError("passphrase", "OKX credentials require an API passphrase")
	}
	return &OKX{APIKey: apiKey, Secret: secret, Passphrase: passphrase, Simulated: simulated}, nil
}

// Sign returns the request path (with sorted query) and the headers for the request.
func (s OKX) Sign(method, path string, query url.Values, body []byte) (string, http.Header, error) {
	if s.Passphrase == "" {
		return "", nil, exchange.NewConfigurationError("passphrase", "OKX credentials require an API passphrase")
	}
	method = strings.ToUpper(method)

	requestPath := path
	if q := sortedQuery(query, false); q != "" {
		requestPath += "?" + q
	}

	ts := s.Now.now().UTC().Format(OKXTimeLayout)
	sign := s.Signature(ts + method + requestPath + string(body))

	headers := http.Header{}
	headers.Set("OK-ACCESS-KEY", s.APIKey)
	headers.Set("OK-ACCESS-SIGN", sign)
	headers.Set("OK-ACCESS-TIMESTAMP", ts)
	headers.Set("OK-ACCESS-PASSPHRASE", s.Passphrase)
	headers.Set("Content-Type", "application/json")
	if s.Simulated {
		headers.Set("x-simulated-trading", "1")
	}
	return requestPath, headers, nil
}

// Signature computes base64(HMAC-SHA256(secret, prehash))
func (s OKX) Signature(prehash string) string {
	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write([]byte(prehash))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
