// Command simulate replays synthetic transactions against a running
// server: a warm-up phase of normal spending to build the profile,
// then a mix of normal and anomalous transactions to exercise the
// decision boundaries.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"
)

type assessRequest struct {
	UserID             string  `json:"user_id"`
	Amount             float64 `json:"amount"`
	HourOfDay          int     `json:"hour_of_day"`
	Location           string  `json:"location,omitempty"`
	LocationChanged    bool    `json:"location_changed,omitempty"`
	RetryCount         int     `json:"retry_count,omitempty"`
	LivenessPassed     bool    `json:"liveness_passed"`
	LivenessConfidence float64 `json:"liveness_confidence"`
}

type assessResponse struct {
	Decision  string   `json:"decision"`
	RiskScore float64  `json:"risk_score"`
	Reasons   []string `json:"reasons"`
}

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8080", "Server base URL")
		userID  = flag.String("user", "sim-user-1", "User id to simulate")
		warmup  = flag.Int("warmup", 20, "Normal transactions to establish the baseline")
		count   = flag.Int("count", 10, "Test transactions after warm-up")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	)
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	client := &http.Client{Timeout: 10 * time.Second}

	if err := createProfile(client, *baseURL, *userID); err != nil {
		slog.Error("failed to create profile", "error", err)
		os.Exit(1)
	}

	// Warm-up: amounts around 3000 during daytime hours.
	for i := 0; i < *warmup; i++ {
		req := assessRequest{
			UserID:             *userID,
			Amount:             2500 + rng.Float64()*1000,
			HourOfDay:          9 + rng.Intn(9),
			Location:           "home-city",
			LivenessPassed:     true,
			LivenessConfidence: 0.9 + rng.Float64()*0.1,
		}
		if _, err := assess(client, *baseURL, req); err != nil {
			slog.Error("warm-up transaction failed", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("warm-up complete", "transactions", *warmup)

	// Test phase: alternate normal and anomalous transactions.
	for i := 0; i < *count; i++ {
		req := assessRequest{
			UserID:             *userID,
			Amount:             2500 + rng.Float64()*1000,
			HourOfDay:          9 + rng.Intn(9),
			Location:           "home-city",
			LivenessPassed:     true,
			LivenessConfidence: 0.95,
		}
		label := "normal"
		if i%2 == 1 {
			req.Amount = 15000 + rng.Float64()*10000
			req.HourOfDay = 3
			req.Location = "far-away"
			req.LocationChanged = true
			req.RetryCount = rng.Intn(4)
			req.LivenessPassed = false
			req.LivenessConfidence = 0.5
			label = "anomalous"
		}

		resp, err := assess(client, *baseURL, req)
		if err != nil {
			slog.Error("assessment failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("[%s] amount=%.0f hour=%d -> %s (risk %.3f)\n",
			label, req.Amount, req.HourOfDay, resp.Decision, resp.RiskScore)
		for _, reason := range resp.Reasons {
			fmt.Printf("    %s\n", reason)
		}
	}
}

func createProfile(client *http.Client, baseURL, userID string) error {
	body, _ := json.Marshal(map[string]interface{}{
		"user_id":          userID,
		"learning_enabled": true,
	})
	resp, err := client.Post(baseURL+"/api/v1/profiles", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func assess(client *http.Client, baseURL string, req assessRequest) (*assessResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := client.Post(baseURL+"/api/v1/assess-transaction", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out assessResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
