package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const baseURL = "http://localhost:8080"

// Smoke test walking the full trade lifecycle against a running server.
func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	// 1. Health Check
	checkEndpoint("GET", "/health", nil, 200)

	// 2. Reset to a known state
	checkEndpoint("POST", "/api/portfolio/reset", nil, 200)

	// 3. Buy
	trade("AAPL", "Apple Inc.", "stock", "buy", 10, 150.0, 200)

	// 4. Buy more of the same (weighted-average merge)
	trade("AAPL", "Apple Inc.", "stock", "buy", 5, 180.0, 200)

	// 5. Partial sell
	trade("AAPL", "Apple Inc.", "stock", "sell", 8, 170.0, 200)

	// 6. Rejected: selling more than held
	trade("AAPL", "Apple Inc.", "stock", "sell", 100, 170.0, 400)

	// 7. Rejected: unknown holding
	trade("BTC", "Bitcoin", "crypto", "sell", 1, 60000.0, 400)

	// 8. Portfolio and performance
	checkEndpoint("GET", "/api/portfolio", nil, 200)
	checkEndpoint("GET", "/api/portfolio/performance", nil, 200)

	fmt.Println("ALL TESTS PASSED")
}

func trade(symbol, name, class, action string, quantity, price float64, expectedStatus int) {
	body := map[string]interface{}{
		"symbol":   symbol,
		"name":     name,
		"type":     class,
		"action":   action,
		"quantity": quantity,
		"price":    price,
	}
	checkEndpoint("POST", "/api/portfolio/trade", body, expectedStatus)
}

func checkEndpoint(method, path string, body interface{}, expectedStatus int) {
	fmt.Printf("Testing %s %s...\n", method, path)
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, baseURL+path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != expectedStatus {
		log.Fatalf("Expected status %d, got %d. Body: %s", expectedStatus, resp.StatusCode, string(respBody))
	}
	fmt.Printf("Response: %s\n", string(respBody))
}
