package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"order-desk/internal/exchange"
	"order-desk/internal/exchange/binance"
)

// Checks which Binance account family the key in .env belongs to and prints
// the detection result. Useful when a query returns nothing for papi sources.
func main() {
	godotenv.Load()

	apiKey := os.Getenv("BINANCE_API_KEY")
	apiSecret := os.Getenv("BINANCE_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		fmt.Println("BINANCE_API_KEY and BINANCE_API_SECRET required in .env")
		fmt.Printf("   API Key found: %v, Secret found: %v\n", apiKey != "", apiSecret != "")
		os.Exit(1)
	}

	endpoints := binance.DefaultEndpoints()
	if url := os.Getenv("BINANCE_PAPI_URL"); url != "" {
		endpoints.PAPIURL = url
	}
	if url := os.Getenv("BINANCE_FAPI_URL"); url != "" {
		endpoints.FAPIURL = url
	}

	cred := exchange.Credential{Exchange: exchange.Binance, Label: "env", APIKey: apiKey, APISecret: apiSecret}
	client := binance.NewClient(cred, endpoints, exchange.NewTransport(nil), 5000)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mode := binance.DetectAccountMode(ctx, client)
	out, _ := json.MarshalIndent(mode, "", "  ")
	fmt.Println(string(out))

	if mode.Mode == binance.ModeUnknown {
		os.Exit(2)
	}
}
