package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/analytics"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	maxBodyRunes    = 12000
	maxIssues       = 20
	maxLandingRunes = 1200

	rewriteSystemPrompt  = "You are a senior SEO editor for Korean landing pages. Return ONLY valid JSON. No markdown. No extra text."
	optimizeSystemPrompt = "You output strictly valid JSON only."
	optimizeTemperature  = 0.6
)

// chatCompleter is the part of the OpenAI client this package uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client calls an OpenAI-compatible chat completion endpoint for both
// rewrites and A/B pack generation.
type Client struct {
	api         chatCompleter
	model       string
	temperature float32
	timeout     time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewClient builds a client from config. It fails only when no API key is
// configured.
func NewClient(cfg models.RewriteConfig, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("rewrite: OPENAI_API_KEY is not set")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return newClient(openai.NewClientWithConfig(oc), cfg, logger), nil
}

func newClient(api chatCompleter, cfg models.RewriteConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4.1-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	limit := rate.Inf
	if cfg.PerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.PerMinute))
	}
	return &Client{
		api:         api,
		model:       model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger,
	}
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrNoPatch)
	}
	c.logger.Debug("chat completion done",
		"model", c.model,
		"finish_reason", resp.Choices[0].FinishReason,
		"elapsed_ms", time.Since(start).Milliseconds())
	return resp.Choices[0].Message.Content, nil
}

type rewriteInputs struct {
	PrimaryKeyword     string         `json:"primary_keyword"`
	SupportingKeywords []string       `json:"supporting_keywords"`
	Intent             string         `json:"intent"`
	CurrentPage        models.Page    `json:"current_page"`
	Issues             []models.Issue `json:"issues"`
}

type rewritePrompt struct {
	Task         string         `json:"task"`
	Language     string         `json:"language"`
	Constraints  Constraints    `json:"constraints"`
	Rules        []string       `json:"rules"`
	Inputs       rewriteInputs  `json:"inputs"`
	OutputSchema map[string]any `json:"output_schema"`
}

// Rewrite asks the model for a patch. The page body and issue list are
// truncated so the payload stays bounded.
func (c *Client) Rewrite(ctx context.Context, req Request) (*Patch, error) {
	req.Page.BodyHTML = analytics.TruncateRunes(req.Page.BodyHTML, maxBodyRunes)
	if len(req.Issues) > maxIssues {
		req.Issues = req.Issues[:maxIssues]
	}
	prompt := rewritePrompt{
		Task:        "Fix the landing page content to pass the SEO audit while staying factual and non-medical.",
		Language:    "ko",
		Constraints: req.Constraints,
		Rules: []string{
			"must include a disclaimer about individual differences and patch testing",
			"primary keyword within the first 120 words",
			"avoid medical or absolute claims",
		},
		Inputs: rewriteInputs{
			PrimaryKeyword:     req.Targeting.Keyword(),
			SupportingKeywords: req.Targeting.Supporting(),
			Intent:             req.Targeting.Intent,
			CurrentPage:        req.Page,
			Issues:             req.Issues,
		},
		OutputSchema: map[string]any{
			"meta_title":       "string",
			"meta_description": "string",
			"h1":               "string",
			"body_html":        "string (HTML allowed)",
			"cta":              "string",
			"faq":              []map[string]string{{"q": "string", "a": "string"}},
		},
	}
	payload, err := json.Marshal(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rewrite prompt: %w", err)
	}
	text, err := c.complete(ctx, rewriteSystemPrompt, string(payload), c.temperature)
	if err != nil {
		return nil, err
	}
	return DecodePatch(text)
}

// Optimize asks the model for an A/B copy pack.
func (c *Client) Optimize(ctx context.Context, req OptimizeRequest) (*models.OptimizePack, error) {
	text, err := c.complete(ctx, optimizeSystemPrompt, optimizePrompt(req), optimizeTemperature)
	if err != nil {
		return nil, err
	}
	pack, err := DecodePack(text)
	if err != nil {
		return nil, err
	}
	pack.Source = "openai:" + c.model
	return pack, nil
}

func optimizePrompt(req OptimizeRequest) string {
	t := req.Targeting
	var b strings.Builder
	b.WriteString("너는 Google 검색 결과 CTR을 올리기 위한 A/B 카피 최적화 에이전트다.\n")
	b.WriteString("화장품/뷰티 문구는 과장, 치료 단정, 의약품 오인 표현을 금지한다.\n\n")
	fmt.Fprintf(&b, "- intent: %s\n", t.Intent)
	fmt.Fprintf(&b, "- primary keyword: %s\n", t.Keyword())
	fmt.Fprintf(&b, "- supporting keywords: %s\n", strings.Join(t.Supporting(), ", "))
	fmt.Fprintf(&b, "- 기존 meta_title: %s\n", req.MetaTitle)
	fmt.Fprintf(&b, "- 기존 meta_description: %s\n", req.MetaDescription)
	fmt.Fprintf(&b, "- 랜딩 본문 발췌: %s\n\n", analytics.TruncateRunes(req.LandingText, maxLandingRunes))
	b.WriteString("Variant A/B 두 개를 생성한다. meta_title 30~60자, meta_description 70~160자, ")
	b.WriteString("hero_headline은 H1 역할(키워드 포함 권장), FAQ는 3~5개.\n")
	b.WriteString(`출력 형식: {"variants":{"A":{"meta_title":"","meta_description":"","hero_headline":"","hero_sub":"","cta":"","faq":[{"q":"","a":""}]},"B":{...}},"notes":[""]}`)
	return b.String()
}
