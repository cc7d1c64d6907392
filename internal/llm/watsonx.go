package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/querypilot/querypilot/internal/observability"
)

const (
	defaultIAMEndpoint = "https://iam.cloud.ibm.com/identity/token"
	generationVersion  = "2023-05-29"

	// Refresh the IAM token this long before its reported expiry.
	tokenExpirySlack = 60 * time.Second
)

type WatsonxConfig struct {
	BaseURL   string
	APIKey    string
	ProjectID string
	ModelID   string
	Timeout   time.Duration

	// AuthURL overrides the IAM token endpoint; tests point it at a stub.
	AuthURL    string
	HTTPClient *http.Client
}

// WatsonxClient calls the watsonx.ai text-generation API. It exchanges the
// account API key for a short-lived IAM bearer token and caches it until it
// is close to expiry.
type WatsonxClient struct {
	baseURL   string
	apiKey    string
	projectID string
	modelID   string
	authURL   string
	client    *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewWatsonxClient(cfg WatsonxConfig) (*WatsonxClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		return nil, fmt.Errorf("model id is required")
	}
	authURL := strings.TrimSpace(cfg.AuthURL)
	if authURL == "" {
		authURL = defaultIAMEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &WatsonxClient{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:    strings.TrimSpace(cfg.APIKey),
		projectID: strings.TrimSpace(cfg.ProjectID),
		modelID:   strings.TrimSpace(cfg.ModelID),
		authURL:   authURL,
		client:    client,
	}, nil
}

func (c *WatsonxClient) Generate(ctx context.Context, prompt string, params GenParams) (string, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"model_id":   c.modelID,
		"input":      prompt,
		"project_id": c.projectID,
		"parameters": generationParameters(params),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generation payload: %w", err)
	}

	endpoint := c.baseURL + "/ml/v1/text/generation?version=" + generationVersion
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request text generation: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	observability.ObserveModelCall(time.Since(start))

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generation response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("text generation failed status=%d body=%s", resp.StatusCode, string(rawBody))
	}

	var parsed struct {
		Results []struct {
			GeneratedText string `json:"generated_text"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return "", fmt.Errorf("decode generation response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return "", fmt.Errorf("empty generation results")
	}
	return parsed.Results[0].GeneratedText, nil
}

func (c *WatsonxClient) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ibm:params:oauth:grant-type:apikey")
	form.Set("apikey", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request iam token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("iam token exchange failed status=%d body=%s", resp.StatusCode, string(rawBody))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("iam token response missing access_token")
	}

	c.token = parsed.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	return c.token, nil
}

func generationParameters(params GenParams) map[string]any {
	decoding := "greedy"
	if params.Temperature > 0 {
		decoding = "sample"
	}
	parameters := map[string]any{
		"decoding_method":    decoding,
		"max_new_tokens":     params.MaxTokens,
		"repetition_penalty": params.RepetitionPenalty,
	}
	if decoding == "sample" {
		parameters["temperature"] = params.Temperature
		parameters["top_p"] = params.TopP
	}
	if len(params.StopSequences) > 0 {
		parameters["stop_sequences"] = params.StopSequences
	}
	return parameters
}
