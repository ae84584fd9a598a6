// Package advisory talks to the language-model classifier. Its output is a
// hint: every response is validated against the closed vocabularies before it
// leaves the package, and every failure degrades to "no result".
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teranos/qntx-astro/errors"
)

// MaxTemperature bounds sampling so classifications stay close to deterministic.
const MaxTemperature = 0.3

// ErrBadStatus marks a non-200 reply from the inference endpoint.
var ErrBadStatus = errors.New("inference endpoint returned non-200 status")

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Pinger is implemented by generators that can report reachability cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientConfig configures an OllamaClient.
type ClientConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	NumPredict  int
	// Timeout bounds a single HTTP exchange. Callers normally bound calls
	// through the context instead.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OllamaClient calls POST /api/generate on an Ollama-compatible server.
type OllamaClient struct {
	baseURL     string
	model       string
	temperature float64
	numPredict  int
	httpClient  *http.Client
}

// NewOllamaClient builds a client. Temperature is clamped to MaxTemperature.
func NewOllamaClient(cfg ClientConfig) *OllamaClient {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	temp := cfg.Temperature
	if temp > MaxTemperature {
		temp = MaxTemperature
	}
	if temp < 0 {
		temp = 0
	}
	return &OllamaClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: temp,
		numPredict:  cfg.NumPredict,
		httpClient:  hc,
	}
}

// Model returns the configured model name.
func (c *OllamaClient) Model() string {
	return c.model
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends prompt and returns the raw response text.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.temperature,
			NumPredict:  c.numPredict,
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "inference request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.WithDetailf(
			errors.Wrapf(ErrBadStatus, "status %d", resp.StatusCode),
			"body: %s", strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "failed to decode response")
	}
	return out.Response, nil
}

// Ping checks that the server answers GET /api/tags.
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "ping inference endpoint")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrBadStatus, "status %d", resp.StatusCode)
	}
	return nil
}
