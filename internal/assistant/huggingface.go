package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

type HuggingFaceConfig struct {
	Token       string
	BaseURL     string
	Model       string
	Persona     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// HuggingFace calls the raw inference endpoint of a hosted text-generation model.
type HuggingFace struct {
	client   *http.Client
	endpoint string
	cfg      HuggingFaceConfig
}

func NewHuggingFace(cfg HuggingFaceConfig) *HuggingFace {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co/models"
	}

	base := &http.Client{Timeout: cfg.Timeout}
	client := base
	if cfg.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
		client.Timeout = cfg.Timeout
	}

	return &HuggingFace{
		client:   client,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.Model, "/"),
		cfg:      cfg,
	}
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfParameters struct {
	Temperature    float64 `json:"temperature,omitempty"`
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

type hfError struct {
	Error string `json:"error"`
}

func (p *HuggingFace) Generate(ctx context.Context, question string) (string, error) {
	payload := hfRequest{
		Inputs: p.prompt(question),
		Parameters: hfParameters{
			Temperature:  p.cfg.Temperature,
			MaxNewTokens: p.cfg.MaxTokens,
		},
		Options: hfOptions{WaitForModel: true},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("huggingface request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("huggingface read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("huggingface http %d: %s", resp.StatusCode, truncate(body))
	}

	var generations []hfGeneration
	if err := json.Unmarshal(body, &generations); err != nil {
		var apiErr hfError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("huggingface: %s", apiErr.Error)
		}
		return "", fmt.Errorf("huggingface unmarshal: %w", err)
	}
	if len(generations) == 0 {
		return "", ErrEmptyReply
	}

	reply := cleanReply(generations[0].GeneratedText)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

func (p *HuggingFace) prompt(question string) string {
	var b strings.Builder
	if p.cfg.Persona != "" {
		b.WriteString(strings.TrimSpace(p.cfg.Persona))
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
