package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"stock-data-gateway/internal/data"
)

// Agent turns a canonical fundamentals snapshot into a trading signal
// with an LLM. When the model is disabled or unreachable it falls back
// to a deterministic rule-based read of the same metrics, so callers
// always get a usable answer.

type Config struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ByAzure    bool   `yaml:"by_azure"`
	APIVersion string `yaml:"api_version"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// Signal is the agent's verdict on a company's fundamentals.
type Signal struct {
	Ticker     string   `json:"ticker"`
	Signal     string   `json:"signal"` // bullish | bearish | neutral
	Confidence float64  `json:"confidence"`
	Reasoning  []string `json:"reasoning"`
	Mode       string   `json:"mode"` // llm | fallback
}

type Agent struct {
	enabled        bool
	model          *openai.ChatModel
	modelName      string
	disabledReason string
}

func New(cfg Config) *Agent {
	if !cfg.Enabled {
		return &Agent{enabled: false, disabledReason: "disabled by config"}
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv("OPENAI_MODEL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if cfg.APIKey == "" || cfg.Model == "" {
		log.Printf("analyst disabled: missing api key or model")
		return &Agent{enabled: false, disabledReason: "api_key or model missing"}
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	model, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		ByAzure:    cfg.ByAzure,
		APIVersion: cfg.APIVersion,
		Timeout:    timeout,
	})
	if err != nil {
		log.Printf("analyst init error: %v", err)
		return &Agent{enabled: false, disabledReason: "init failed"}
	}
	return &Agent{enabled: true, model: model, modelName: cfg.Model}
}

const analystSystemPrompt = `You are a fundamentals analyst. You must output ONLY valid JSON:
{"signal":"bullish|bearish|neutral","confidence":0.0,"reasoning":["..."]}
Rules:
- Judge only the metrics given; do not invent figures.
- Missing (null) metrics are unknown, not bad: lower confidence instead.
- reasoning holds 1-4 short bullet points.
- confidence is in [0.0, 1.0].`

// Analyze evaluates one fundamentals snapshot.
func (a *Agent) Analyze(ctx context.Context, m data.FinancialMetrics) (Signal, error) {
	if !a.enabled || a.model == nil {
		return Fallback(m), nil
	}

	payload, _ := json.Marshal(m)
	messages := []*schema.Message{
		schema.SystemMessage(analystSystemPrompt),
		schema.UserMessage(fmt.Sprintf("Metrics: %s", string(payload))),
	}

	resp, err := a.model.Generate(ctx, messages)
	if err != nil {
		log.Printf("analyst llm error: %v", err)
		return Fallback(m), err
	}

	out, err := parseSignal(strings.TrimSpace(resp.Content))
	if err != nil {
		log.Printf("analyst parse error: %v", err)
		return Fallback(m), err
	}
	out.Ticker = m.Ticker
	out.Mode = "llm"
	return sanitize(out), nil
}

// Fallback scores the snapshot with fixed thresholds: profitability
// (ROE, net margin) against valuation (P/E). Unknown metrics count
// neither way.
func Fallback(m data.FinancialMetrics) Signal {
	score := 0
	checks := 0
	var reasons []string

	if m.ReturnOnEquity != nil {
		checks++
		if *m.ReturnOnEquity > 0.15 {
			score++
			reasons = append(reasons, fmt.Sprintf("strong ROE %.1f%%", *m.ReturnOnEquity*100))
		} else if *m.ReturnOnEquity < 0 {
			score--
			reasons = append(reasons, "negative return on equity")
		}
	}
	if m.NetMargin != nil {
		checks++
		if *m.NetMargin > 0.20 {
			score++
			reasons = append(reasons, fmt.Sprintf("high net margin %.1f%%", *m.NetMargin*100))
		} else if *m.NetMargin < 0 {
			score--
			reasons = append(reasons, "loss-making")
		}
	}
	if m.PriceToEarningsRatio != nil {
		checks++
		if *m.PriceToEarningsRatio > 0 && *m.PriceToEarningsRatio < 15 {
			score++
			reasons = append(reasons, fmt.Sprintf("modest P/E %.1f", *m.PriceToEarningsRatio))
		} else if *m.PriceToEarningsRatio > 40 {
			score--
			reasons = append(reasons, fmt.Sprintf("rich P/E %.1f", *m.PriceToEarningsRatio))
		}
	}
	if m.DebtToEquity != nil {
		checks++
		if *m.DebtToEquity > 2 {
			score--
			reasons = append(reasons, fmt.Sprintf("leveraged balance sheet, D/E %.1f", *m.DebtToEquity))
		}
	}

	sig := "neutral"
	if score > 0 {
		sig = "bullish"
	} else if score < 0 {
		sig = "bearish"
	}
	conf := 0.3
	if checks > 0 {
		conf = 0.3 + 0.1*float64(checks)
	}
	if conf > 0.7 {
		conf = 0.7
	}
	if len(reasons) == 0 {
		reasons = []string{"insufficient metrics for a view"}
	}
	return Signal{
		Ticker:     m.Ticker,
		Signal:     sig,
		Confidence: conf,
		Reasoning:  reasons,
		Mode:       "fallback",
	}
}

func parseSignal(text string) (Signal, error) {
	var out Signal
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, nil
	}
	jsonStr := extractFirstJSONObject(text)
	if jsonStr == "" {
		return Signal{}, fmt.Errorf("no json object found")
	}
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return Signal{}, fmt.Errorf("parse signal: %w", err)
	}
	return out, nil
}

func extractFirstJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func sanitize(in Signal) Signal {
	out := in
	out.Signal = strings.ToLower(out.Signal)
	if out.Signal != "bullish" && out.Signal != "bearish" && out.Signal != "neutral" {
		out.Signal = "neutral"
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}
	if len(out.Reasoning) == 0 {
		out.Reasoning = []string{"no reasoning returned"}
	}
	if len(out.Reasoning) > 4 {
		out.Reasoning = out.Reasoning[:4]
	}
	return out
}
