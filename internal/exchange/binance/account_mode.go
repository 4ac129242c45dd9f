package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"order-desk/internal/exchange"
	"order-desk/internal/logging"
)

// Account modes
const (
	ModeUnified  = "UNIFIED"
	ModeStandard = "STANDARD"
	ModeUnknown  = "UNKNOWN"
)

// Endpoints the detector can report in Via
const (
	ViaPAPI = "papi"
	ViaFAPI = "fapi"
)

const (
	papiAccountPath = "/papi/v1/um/account"
	fapiAccountPath = "/fapi/v2/account"
	maxSearchDepth  = 6
	previewLimit    = 500
)

// AccountMode is the result of probing which Binance account family a key belongs to
type AccountMode struct {
	Mode       string `json:"mode"`
	Via        string `json:"via"`
	PAPIStatus *int   `json:"papi_status"`
	FAPIStatus *int   `json:"fapi_status"`
	Detail     string `json:"detail,omitempty"`
}

// DetectAccountMode queries the portfolio margin account endpoint and falls
// back to the futures account endpoint. It only reads; stored credentials are
// never modified.
func DetectAccountMode(ctx context.Context, client *Client) AccountMode {
	log := logging.ExchangeContext(ctx, exchange.Binance, "account_mode")

	papiResp, err := client.signedRequest(ctx, http.MethodGet, client.endpoints.PAPIURL, papiAccountPath, url.Values{})
	if err != nil {
		log.Warn("PAPI account request failed", "error", err)
		return AccountMode{Mode: ModeUnknown, Via: ViaPAPI, Detail: err.Error()}
	}
	papiStatus := papiResp.Status

	if papiResp.OK() {
		var data interface{}
		if err := exchange.DecodeJSON(papiResp.Body, &data); err != nil {
			data = nil
		}
		return AccountMode{
			Mode:       modeFromAccountType(findAccountType(data, 0)),
			Via:        ViaPAPI,
			PAPIStatus: &papiStatus,
		}
	}

	fapiResp, err := client.signedRequest(ctx, http.MethodGet, client.endpoints.FAPIURL, fapiAccountPath, url.Values{})
	if err != nil {
		var te *exchange.TransportError
		if !errors.As(err, &te) {
			te = &exchange.TransportError{Op: http.MethodGet, URL: fapiAccountPath, Err: err}
		}
		log.Warn("FAPI account request failed", "error", te)
		return AccountMode{
			Mode:       ModeUnknown,
			Via:        ViaFAPI,
			PAPIStatus: &papiStatus,
			Detail: fmt.Sprintf("PAPI status=%d body=%s; FAPI error=%v",
				papiStatus, logging.Truncate(string(papiResp.Body), previewLimit), te),
		}
	}
	fapiStatus := fapiResp.Status

	if fapiResp.OK() {
		return AccountMode{Mode: ModeStandard, Via: ViaFAPI, PAPIStatus: &papiStatus, FAPIStatus: &fapiStatus}
	}

	return AccountMode{
		Mode:       ModeUnknown,
		Via:        ViaFAPI,
		PAPIStatus: &papiStatus,
		FAPIStatus: &fapiStatus,
		Detail: fmt.Sprintf("unable to detect account mode; PAPI status=%d body=%s; FAPI status=%d body=%s",
			papiStatus, logging.Truncate(string(papiResp.Body), previewLimit),
			fapiStatus, logging.Truncate(string(fapiResp.Body), previewLimit)),
	}
}

func modeFromAccountType(accountType string) string {
	switch accountType {
	case ModeUnified, ModeStandard:
		return accountType
	default:
		// PORTFOLIO, unrecognized or absent: the PAPI request succeeded
		return ModeUnified
	}
}

// findAccountType searches the account payload for an accountType string or a
// portfolio margin flag.
func findAccountType(v interface{}, depth int) string {
	if depth > maxSearchDepth {
		return ""
	}
	switch x := v.(type) {
	case map[string]interface{}:
		for _, key := range sortedKeys(x) {
			value := x[key]
			if key == "accountType" {
				if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
					return strings.ToUpper(strings.TrimSpace(s))
				}
			}
			switch key {
			case "portfolioMargin", "isPortfolioMargin", "portfolioMarginAccount":
				if b, ok := value.(bool); ok && b {
					return "PORTFOLIO"
				}
			}
			if found := findAccountType(value, depth+1); found != "" {
				return found
			}
		}
	case []interface{}:
		for _, item := range x {
			if found := findAccountType(item, depth+1); found != "" {
				return found
			}
		}
	}
	return ""
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
