package signing

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"order-desk/internal/exchange"
)

var fixedClock Clock = func() time.Time { return time.Unix(1700000000, 0) }

func TestBinanceSignGoldenVectors(t *testing.T) {
	signer := Binance{APIKey: "key", Secret: "secret", Now: fixedClock}

	tests := []struct {
		name      string
		params    url.Values
		wantQuery string
	}{
		{
			name:   "open orders",
			params: url.Values{"symbol": {"BTCUSDT"}},
			wantQuery: "recvWindow=5000&symbol=BTCUSDT&timestamp=1700000000000" +
				"&signature=5e1ff144a940ffd87f51175de5ebe2f76d4e8fe1951e3c81b001375485bf3430",
		},
		{
			name:   "cancel by order id",
			params: url.Values{"symbol": {"ETHUSDT"}, "orderId": {"12345"}},
			wantQuery: "orderId=12345&recvWindow=5000&symbol=ETHUSDT&timestamp=1700000000000" +
				"&signature=8ed4a5ca30bbc5ebe8958d193e32b78a98d66128b75f1ef8b52405d3e43fffc4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, headers := signer.Sign(tt.params)
			if query != tt.wantQuery {
				t.Errorf("Expected query %s, got %s", tt.wantQuery, query)
			}
			if headers.Get("X-MBX-APIKEY") != "key" {
				t.Errorf("Expected api key header, got %q", headers.Get("X-MBX-APIKEY"))
			}
		})
	}
}

func TestBinanceSignDoesNotMutateParams(t *testing.T) {
	signer := Binance{Secret: "secret", Now: fixedClock}
	params := url.Values{"symbol": {"BTCUSDT"}}

	signer.Sign(params)

	if len(params) != 1 {
		t.Errorf("Expected caller params untouched, got %v", params)
	}
}

func TestBinanceSignHonoursRecvWindow(t *testing.T) {
	signer := Binance{Secret: "secret", RecvWindow: 10000, Now: fixedClock}
	query, _ := signer.Sign(url.Values{})
	if !strings.HasPrefix(query, "recvWindow=10000&timestamp=1700000000000&signature=") {
		t.Errorf("Unexpected query %s", query)
	}
}

func TestOKXSignGoldenVectors(t *testing.T) {
	signer := OKX{APIKey: "key", Secret: "secret", Passphrase: "pass", Now: fixedClock}

	path, headers, err := signer.Sign("GET", "/api/v5/trade/orders-pending",
		url.Values{"limit": {"100"}, "instType": {"SWAP"}}, nil)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if path != "/api/v5/trade/orders-pending?instType=SWAP&limit=100" {
		t.Errorf("Unexpected request path %s", path)
	}
	if got := headers.Get("OK-ACCESS-SIGN"); got != "Crp6kwmrre68wyV7xnNBSjjf92VPiO4AqWFfzprlAbM=" {
		t.Errorf("Expected GET signature, got %s", got)
	}
	if got := headers.Get("OK-ACCESS-TIMESTAMP"); got != "2023-11-14T22:13:20.000Z" {
		t.Errorf("Expected timestamp 2023-11-14T22:13:20.000Z, got %s", got)
	}
	if headers.Get("OK-ACCESS-PASSPHRASE") != "pass" || headers.Get("OK-ACCESS-KEY") != "key" {
		t.Errorf("Missing key or passphrase headers: %v", headers)
	}
	if headers.Get("x-simulated-trading") != "" {
		t.Error("Simulated trading header should be absent")
	}

	body := []byte(`{"instId":"BTC-USDT-SWAP","ordId":"123"}`)
	path, headers, err = signer.Sign("post", "/api/v5/trade/cancel-order", nil, body)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if path != "/api/v5/trade/cancel-order" {
		t.Errorf("Unexpected request path %s", path)
	}
	if got := headers.Get("OK-ACCESS-SIGN"); got != "ltlefnSzAHPwSNaAy0gDtzHU6enC2/DSNDhORO/0w74=" {
		t.Errorf("Expected POST signature, got %s", got)
	}
}

func TestOKXSimulatedHeader(t *testing.T) {
	signer := OKX{Secret: "secret", Passphrase: "p", Simulated: true, Now: fixedClock}
	_, headers, err := signer.Sign("GET", "/api/v5/trade/order", nil, nil)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if headers.Get("x-simulated-trading") != "1" {
		t.Errorf("Expected x-simulated-trading 1, got %q", headers.Get("x-simulated-trading"))
	}
}

func TestNewOKXRequiresPassphrase(t *testing.T) {
	_, err := NewOKX("key", "secret", "  ", false)
	var cfgErr *exchange.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}
	if cfgErr.Field != "passphrase" {
		t.Errorf("Expected field passphrase, got %s", cfgErr.Field)
	}
}

func TestGateSignGoldenVectors(t *testing.T) {
	signer := Gate{APIKey: "key", Secret: "secret", Now: fixedClock}

	tests := []struct {
		name      string
		method    string
		path      string
		query     url.Values
		wantQuery string
		wantSign  string
	}{
		{
			name:      "spot open orders",
			method:    "GET",
			path:      "/api/v4/spot/open_orders",
			query:     url.Values{"page": {"1"}, "limit": {"100"}, "account": {"unified"}},
			wantQuery: "account=unified&limit=100&page=1",
			wantSign:  "b102a9aa422b376789b6bfd58a08f912c257ea6057b033e391c83e35e955bfb1a6a14b8f9deb3981e978eff67ce0d61509961f0a29e0adcfa88802c4316947ef",
		},
		{
			name:      "futures cancel",
			method:    "DELETE",
			path:      "/api/v4/futures/usdt/orders/987",
			query:     url.Values{"contract": {"BTC_USDT"}, "text": {""}},
			wantQuery: "contract=BTC_USDT",
			wantSign:  "412cc73c93a15f783aa19c633ba7374e0e8f09112ee9e4af8f1b59d71333b8814e307ae0cb62d3ad8929d2f31f9aadfc324d16affd61e48ee5d4bccf3d1ef77e",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rawQuery, headers := signer.Sign(tt.method, tt.path, tt.query, nil)
			if rawQuery != tt.wantQuery {
				t.Errorf("Expected query %s, got %s", tt.wantQuery, rawQuery)
			}
			if got := headers.Get("SIGN"); got != tt.wantSign {
				t.Errorf("Expected signature %s, got %s", tt.wantSign, got)
			}
			if headers.Get("Timestamp") != "1700000000" {
				t.Errorf("Expected timestamp 1700000000, got %s", headers.Get("Timestamp"))
			}
			if headers.Get("KEY") != "key" {
				t.Errorf("Expected KEY header, got %s", headers.Get("KEY"))
			}
		})
	}
}
