package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/models"
)

const (
	DefaultCTA      = "GET IT NOW!"
	MaxBullets      = 8
	minBulletLen    = 5
	templateBullets = 5
	minBullets      = 3
	paddingBullet   = "Premium quality you can trust"
)

var errEmptyFacts = errors.New("product facts carry no title or features")

// Completer is a text generation backend.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CohereCompleter calls the Cohere chat endpoint.
type CohereCompleter struct {
	client *cohereclient.Client
	model  string
}

func NewCohereCompleter(apiKey, model string, hc *http.Client) *CohereCompleter {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &CohereCompleter{
		client: cohereclient.NewClient(
			cohereclient.WithToken(apiKey),
			cohereclient.WithHTTPClient(hc),
		),
		model: model,
	}
}

func (c *CohereCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	req := &cohere.ChatRequest{Message: prompt}
	if c.model != "" {
		req.Model = cohere.String(c.model)
	}
	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("cohere chat returned no text")
	}
	return resp.Text, nil
}

// ScriptWriter asks the model for copy and falls back to a script built
// from the facts when there is no model or the model fails.
type ScriptWriter struct {
	LLM Completer
	Log *zap.Logger
}

func NewScriptWriter(llm Completer, log *zap.Logger) *ScriptWriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScriptWriter{LLM: llm, Log: log}
}

func (w *ScriptWriter) Generate(ctx context.Context, facts models.ProductFacts) (models.AdScript, error) {
	if strings.TrimSpace(facts.Title) == "" && len(facts.Features) == 0 {
		return models.AdScript{}, &UpstreamError{Stage: "script", Ref: facts.URL, Err: errEmptyFacts}
	}

	if w.LLM != nil {
		text, err := w.LLM.Complete(ctx, Prompt(facts))
		switch {
		case err == nil && strings.TrimSpace(text) != "":
			s := ParseScript(text, facts)
			w.Log.Info("ad copy generated",
				zap.String("headline", s.Headline),
				zap.Int("bullets", len(s.Bullets)))
			return s, nil
		case ctx.Err() != nil:
			return models.AdScript{}, ctx.Err()
		default:
			w.Log.Warn("copy model failed, using template script", zap.Error(err))
		}
	}
	return TemplateScript(facts), nil
}

// Prompt asks for the line format ParseScript understands.
func Prompt(f models.ProductFacts) string {
	price := f.Price
	if price == "" {
		price = "Not specified"
	}
	features := "Not specified"
	if len(f.Features) > 0 {
		features = strings.Join(f.Features[:min(5, len(f.Features))], ", ")
	}

	var b strings.Builder
	b.WriteString("Create a compelling 30-second slideshow video advertisement script for this product:\n\n")
	fmt.Fprintf(&b, "Product: %s\nDescription: %s\nPrice: %s\nFeatures: %s\n\n", f.Title, f.Description, price, features)
	b.WriteString("Requirements:\n" +
		"- Create an engaging, punchy headline (max 8 words) that grabs attention\n" +
		"- Write 4-5 compelling bullet points about the product benefits\n" +
		"- Keep it concise for a slideshow video with text overlays\n\n" +
		"Format your response as:\n" +
		"HEADLINE: [your punchy headline]\n" +
		"- [benefit 1]\n" +
		"- [benefit 2]\n" +
		"- [benefit 3]\n" +
		"CALL TO ACTION: [strong call to action like \"GET IT NOW!\" or \"SHOP TODAY!\"]")
	return b.String()
}

// ParseScript reads model output line by line. Missing parts are filled from
// the facts so the result is always renderable.
func ParseScript(text string, f models.ProductFacts) models.AdScript {
	s := models.AdScript{CallToAction: DefaultCTA}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		bullet := strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*")

		switch {
		case strings.Contains(upper, "HEADLINE:"), strings.Contains(upper, "TITLE:"):
			s.Headline = afterColon(line)
		case s.Headline == "" && !bullet && !strings.HasPrefix(upper, "CALL"):
			s.Headline = line
		case bullet:
			if p := strings.TrimSpace(strings.TrimLeft(line, "•-* ")); len(p) > minBulletLen {
				s.Bullets = append(s.Bullets, p)
			}
		case strings.Contains(upper, "CALL TO ACTION:"), strings.Contains(upper, "CTA:"):
			if c := afterColon(line); c != "" {
				s.CallToAction = c
			}
		case strings.Contains(upper, "GET IT NOW"), strings.Contains(upper, "SHOP"), strings.Contains(upper, "BUY"):
			s.CallToAction = line
		}
	}

	if s.Headline == "" {
		s.Headline = strings.ToUpper(truncate(f.Title, 30))
	}
	if len(s.Bullets) == 0 {
		s.Bullets = []string{
			"Premium " + strings.ToLower(f.Title),
			"Only " + priceOr(f.Price) + " - Limited Time!",
			"Get it now before it's gone!",
		}
	}
	if len(s.Bullets) > MaxBullets {
		s.Bullets = s.Bullets[:MaxBullets]
	}
	return s
}

// TemplateScript is the copy used without a model.
func TemplateScript(f models.ProductFacts) models.AdScript {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		title = defaultTitle
	}
	s := models.AdScript{
		Headline:     strings.ToUpper(title) + " - GAME CHANGER!",
		CallToAction: DefaultCTA,
	}
	for _, feat := range f.Features {
		if len(s.Bullets) == templateBullets {
			break
		}
		feat = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(feat, "**", ""), "*", ""))
		if feat != "" {
			s.Bullets = append(s.Bullets, feat)
		}
	}
	if f.Price != "" {
		s.Bullets = append(s.Bullets, "Only "+f.Price+" - Limited Time!")
	}
	for len(s.Bullets) < minBullets {
		s.Bullets = append(s.Bullets, paddingBullet)
	}
	return s
}

func afterColon(line string) string {
	if _, after, ok := strings.Cut(line, ":"); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(line)
}

func priceOr(p string) string {
	if p == "" {
		return "Great Value"
	}
	return p
}
