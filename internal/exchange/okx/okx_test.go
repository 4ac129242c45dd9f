package okx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"order-desk/internal/exchange"
)

func testCredential() exchange.Credential {
	return exchange.Credential{Exchange: exchange.OKX, Label: "main", APIKey: "key", APISecret: "secret", Passphrase: "pass"}
}

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	transport := exchange.NewTransport(http.DefaultClient, exchange.WithMaxRetries(0))
	client, err := NewClient(testCredential(), Options{BaseURL: serverURL}, transport)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client.WithClock(func() time.Time { return time.Unix(1700000000, 0) })
}

func pendingOrders(start, n int) string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf(`{"instId":"BTC-USDT-SWAP","ordId":"%d","clOrdId":"","side":"buy","ordType":"limit","px":"42000.0","sz":"1","accFillSz":"0","state":"live","posSide":"long","reduceOnly":"false","cTime":"1700000000000","uTime":"1700000000500"}`, start+i))
	}
	return `{"code":"0","msg":"","data":[` + strings.Join(items, ",") + `]}`
}

func TestListOpenOrdersPaginates(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		q := r.URL.Query()
		if q.Get("instType") != "SWAP" || q.Get("limit") != "100" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("OK-ACCESS-PASSPHRASE") != "pass" || r.Header.Get("OK-ACCESS-SIGN") == "" {
			t.Errorf("Missing auth headers: %v", r.Header)
		}
		switch n {
		case 1:
			if q.Get("after") != "" {
				t.Errorf("First page should not carry a cursor, got %s", q.Get("after"))
			}
			w.Write([]byte(pendingOrders(1000, 100)))
		case 2:
			if q.Get("after") != "1099" {
				t.Errorf("Expected after=1099, got %s", q.Get("after"))
			}
			w.Write([]byte(pendingOrders(2000, 3)))
		default:
			t.Errorf("Unexpected extra page request")
		}
	}))
	defer server.Close()

	adapter, _ := NewAdapter(testClient(t, server.URL), exchange.SourceOKXSwap)
	orders, err := adapter.ListOpenOrders(context.Background())
	if err != nil {
		t.Fatalf("ListOpenOrders failed: %v", err)
	}
	if len(orders) != 103 {
		t.Errorf("Expected 103 orders, got %d", len(orders))
	}
	if calls != 2 {
		t.Errorf("Expected 2 page requests, got %d", calls)
	}

	o := orders[0]
	if o.ID != "okx:okx_swap:1000" || o.Symbol != "BTC-USDT-SWAP" {
		t.Errorf("Unexpected order identity %s %s", o.ID, o.Symbol)
	}
	if o.ClientOrderID != nil {
		t.Errorf("Expected empty clOrdId to be nil, got %q", *o.ClientOrderID)
	}
	if o.Price == nil || *o.Price != "42000" {
		t.Errorf("Expected price 42000, got %v", o.Price)
	}
	if o.ReduceOnly == nil || *o.ReduceOnly {
		t.Errorf("Expected reduce_only false, got %v", o.ReduceOnly)
	}
	if o.UpdateTime == nil || *o.UpdateTime != 1700000000500 {
		t.Errorf("Expected update_time 1700000000500, got %v", o.UpdateTime)
	}
}

func TestListOpenOrdersStopsWhenCursorDoesNotAdvance(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(pendingOrders(1, 100)))
	}))
	defer server.Close()

	adapter, _ := NewAdapter(testClient(t, server.URL), exchange.SourceOKXSpot)
	if _, err := adapter.ListOpenOrders(context.Background()); err != nil {
		t.Fatalf("ListOpenOrders failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected to stop after repeated cursor, got %d calls", calls)
	}
}

func TestListOpenOrdersEnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"50113","msg":"Invalid Sign","data":[]}`))
	}))
	defer server.Close()

	adapter, _ := NewAdapter(testClient(t, server.URL), exchange.SourceOKXMargin)
	_, err := adapter.ListOpenOrders(context.Background())
	if exchange.Classify(err) != exchange.KindRejected || !strings.Contains(err.Error(), "Invalid Sign") {
		t.Errorf("Expected rejection with exchange message, got %v", err)
	}
}

func TestCancelOrder(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantKind string
		wantMsg  string
	}{
		{name: "success", response: `{"code":"0","msg":"","data":[{"ordId":"123","sCode":"0","sMsg":""}]}`},
		{name: "already canceled", response: `{"code":"1","msg":"Operation failed.","data":[{"ordId":"123","sCode":"51401","sMsg":"Order cancelled"}]}`,
			wantKind: exchange.KindTerminal, wantMsg: "already canceled"},
		{name: "already filled", response: `{"code":"1","msg":"","data":[{"ordId":"123","sCode":"51402","sMsg":"Order filled"}]}`,
			wantKind: exchange.KindTerminal, wantMsg: "already filled"},
		{name: "other failure", response: `{"code":"1","msg":"","data":[{"ordId":"123","sCode":"51000","sMsg":"Parameter error"}]}`,
			wantKind: exchange.KindRejected, wantMsg: "Parameter error"},
		{name: "empty data", response: `{"code":"0","msg":"","data":[]}`,
			wantKind: exchange.KindRejected, wantMsg: "missing sCode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				if r.Method != http.MethodPost || r.URL.Path != cancelOrderPath {
					t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != `{"instId":"BTC-USDT-SWAP","ordId":"123"}` {
					t.Errorf("Unexpected body %s", body)
				}
				if r.Header.Get("OK-ACCESS-SIGN") != "ltlefnSzAHPwSNaAy0gDtzHU6enC2/DSNDhORO/0w74=" {
					t.Errorf("Unexpected signature %s", r.Header.Get("OK-ACCESS-SIGN"))
				}
				w.Write([]byte(tt.response))
			}))
			defer server.Close()

			adapter, _ := NewAdapter(testClient(t, server.URL), exchange.SourceOKXSwap)
			err := adapter.CancelOrder(context.Background(), exchange.OrderRef{Symbol: "BTC-USDT-SWAP", OrderID: "123"})

			if got := exchange.Classify(err); got != tt.wantKind {
				t.Errorf("Expected kind %q, got %q (%v)", tt.wantKind, got, err)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected %q in %q", tt.wantMsg, err.Error())
			}
			if calls != 1 {
				t.Errorf("Expected exactly one call, got %d", calls)
			}
		})
	}
}

func TestNewClientWithoutPassphraseMakesNoCalls(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	cred := testCredential()
	cred.Passphrase = ""
	_, err := NewClient(cred, Options{BaseURL: server.URL}, exchange.NewTransport(nil))
	if !exchange.IsConfiguration(err) {
		t.Errorf("Expected ConfigurationError, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected zero HTTP calls, got %d", calls)
	}
}

func TestLookupOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("clOrdId") == "missing" {
			w.Write([]byte(`{"code":"0","msg":"","data":[]}`))
			return
		}
		if q.Get("instId") != "ETH-USDT" || q.Get("ordId") != "77" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"code":"0","data":[{"instId":"ETH-USDT","ordId":"77","clOrdId":"mine","side":"sell","ordType":"limit","px":"","sz":"2.5000","accFillSz":"1","state":"partially_filled","posSide":"","reduceOnly":"","cTime":"1","uTime":"2"}]}`))
	}))
	defer server.Close()

	adapter, _ := NewAdapter(testClient(t, server.URL), exchange.SourceOKXSpot)
	o, err := adapter.LookupOrder(context.Background(), exchange.OrderRef{Symbol: "ETH-USDT", OrderID: "77"})
	if err != nil {
		t.Fatalf("LookupOrder failed: %v", err)
	}
	if o.ID != "okx:okx_spot:77" || o.OrigQty == nil || *o.OrigQty != "2.5" {
		t.Errorf("Unexpected order %+v", o)
	}
	if o.Price != nil || o.PositionSide != nil || o.ReduceOnly != nil {
		t.Errorf("Expected empty px, posSide and reduceOnly to be nil, got %+v", o)
	}

	_, err = adapter.LookupOrder(context.Background(), exchange.OrderRef{Symbol: "ETH-USDT", ClientOrderID: "missing"})
	if err == nil || err.Error() != "order not found" {
		t.Errorf("Expected 'order not found', got %v", err)
	}
}
