package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/models"
)

const (
	MaxPageImages   = 20
	maxFeatures     = 10
	maxDescription  = 500
	maxPageBytes    = 5 << 20
	minDeclaredSide = 100
	defaultTitle    = "Product"
	defaultDesc     = "High-quality product with excellent features."
)

var (
	titleSelectors = []string{
		`h1[class*="title"]`, `h1[class*="product"]`, `h1[class*="name"]`, `h1`,
		`[class*="product-name"]`, `[class*="product-title"]`, `[class*="title"]`,
	}
	descSelectors = []string{
		`[class*="product-description"]`, `[class*="description"]`,
		`[class*="product-details"]`, `[class*="details"]`,
	}
	priceSelectors = []string{
		`[itemprop="price"]`, `[data-price]`, `[class*="price"]`, `[class*="cost"]`, `[class*="amount"]`,
	}
	featureSelectors = []string{
		`ul[class*="feature"] li`, `ul[class*="benefit"] li`, `ul[class*="spec"] li`,
		`li[class*="feature"]`, `li[class*="benefit"]`,
		`[class*="feature"]`, `[class*="benefit"]`, `[class*="specification"]`,
	}
	featureWords = []string{"feature", "benefit", "advantage", "include", "comes with"}

	skippedExt      = []string{".svg", ".gif", ".webp"}
	skippedPatterns = []string{
		"logo", "icon", "banner", "tracking", "pixel", "analytics", "social",
		"share", "avatar", "profile", "thumb", "placeholder", "flag", "country",
		"sprite", "transparent",
	}
	adToken = regexp.MustCompile(`(^|[^a-z])ads?([^a-z]|$)`)

	priceRe  = regexp.MustCompile(`[$£€]?\s*\d+(?:[.,]\d+)?`)
	styleDim = regexp.MustCompile(`(width|height):\s*(\d+)px`)
	spaces   = regexp.MustCompile(`\s+`)
)

// PageScraper reads product facts from an HTML page. go-readability supplies
// the article title, excerpt and lead image; goquery handles the product
// specific selectors.
type PageScraper struct {
	Client    *http.Client
	UserAgent string
	Log       *zap.Logger
}

func NewPageScraper(client *http.Client, log *zap.Logger) *PageScraper {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PageScraper{
		Client:    client,
		UserAgent: "Mozilla/5.0 (compatible; adreel/1.0)",
		Log:       log,
	}
}

func (s *PageScraper) Fetch(ctx context.Context, pageURL string) (models.ProductFacts, error) {
	fail := func(err error) (models.ProductFacts, error) {
		return models.ProductFacts{}, &UpstreamError{Stage: "scrape", Ref: pageURL, Err: err}
	}

	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return fail(fmt.Errorf("not an http(s) url"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return fail(err)
	}

	facts, err := Extract(body, base)
	if err != nil {
		return fail(err)
	}
	s.Log.Info("product page scraped",
		zap.String("url", pageURL),
		zap.String("title", facts.Title),
		zap.String("price", facts.Price),
		zap.Int("features", len(facts.Features)),
		zap.Int("images", len(facts.Images)))
	return facts, nil
}

// Extract parses an already downloaded page.
func Extract(body []byte, base *url.URL) (models.ProductFacts, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.ProductFacts{}, fmt.Errorf("parse html: %w", err)
	}
	// Readability is best effort; pages without an article body still have
	// product markup.
	article, _ := readability.FromReader(bytes.NewReader(body), base)

	facts := models.ProductFacts{
		URL:          base.String(),
		Title:        extractTitle(doc, article.Title),
		Description:  extractDescription(doc, article.Excerpt),
		Price:        extractPrice(doc),
		Features:     extractFeatures(doc),
		Images:       extractImages(doc, base, article.Image),
		Rating:       itemprop(doc, "ratingValue"),
		Availability: availability(doc),
		Brand:        itemprop(doc, "brand"),
		Category:     itemprop(doc, "category"),
	}
	return facts, nil
}

func text(sel *goquery.Selection) string {
	return strings.TrimSpace(spaces.ReplaceAllString(sel.Text(), " "))
}

func extractTitle(doc *goquery.Document, readable string) string {
	for _, q := range titleSelectors {
		if t := text(doc.Find(q).First()); len(t) > 10 && len(t) < 200 {
			return t
		}
	}
	if t := strings.TrimSpace(readable); t != "" {
		return t
	}
	if t := text(doc.Find("title").First()); t != "" {
		return t
	}
	return defaultTitle
}

func extractDescription(doc *goquery.Document, excerpt string) string {
	for _, q := range descSelectors {
		if d := text(doc.Find(q).First()); len(d) > 20 {
			return truncate(d, maxDescription)
		}
	}
	if d, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && len(strings.TrimSpace(d)) > 20 {
		return truncate(strings.TrimSpace(d), maxDescription)
	}
	if e := strings.TrimSpace(excerpt); len(e) > 20 {
		return truncate(e, maxDescription)
	}
	return defaultDesc
}

func extractPrice(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[itemprop="price"]`).Attr("content"); ok && v != "" {
		return strings.TrimSpace(v)
	}
	for _, q := range priceSelectors {
		sel := doc.Find(q).First()
		candidates := []string{text(sel)}
		if v, ok := sel.Attr("data-price"); ok {
			candidates = append(candidates, v)
		}
		for _, c := range candidates {
			if m := priceRe.FindString(c); m != "" {
				return strings.TrimSpace(m)
			}
		}
	}
	return ""
}

func extractFeatures(doc *goquery.Document) []string {
	var out []string
	seen := map[string]bool{}
	add := func(t string) {
		if len(t) > 10 && len(t) < 200 && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, q := range featureSelectors {
		doc.Find(q).Each(func(_ int, s *goquery.Selection) {
			// Containers repeat their items' text.
			if s.Find("li").Length() == 0 {
				add(text(s))
			}
		})
	}
	if len(out) == 0 {
		doc.Find("li, p").Each(func(_ int, s *goquery.Selection) {
			t := text(s)
			lower := strings.ToLower(t)
			for _, w := range featureWords {
				if strings.Contains(lower, w) {
					add(t)
					return
				}
			}
		})
	}
	if len(out) > maxFeatures {
		out = out[:maxFeatures]
	}
	return out
}

func extractImages(doc *goquery.Document, base *url.URL, lead string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(raw string) {
		abs := resolve(base, raw)
		if abs == "" || seen[abs] || !KeepImage(abs) {
			return
		}
		seen[abs] = true
		out = append(out, abs)
	}

	if lead != "" {
		add(lead)
	}
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := firstAttr(img, "data-old-hires", "src", "data-src", "data-lazy-src")
		if src == "" || tooSmall(img) {
			return
		}
		add(src)
	})
	if len(out) > MaxPageImages {
		out = out[:MaxPageImages]
	}
	return out
}

// KeepImage filters out formats the pipeline does not want and URLs that
// look like page chrome rather than product shots.
func KeepImage(u string) bool {
	lower := strings.ToLower(u)
	path := lower
	if p, err := url.Parse(lower); err == nil {
		path = p.Path
	}
	for _, ext := range skippedExt {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	for _, pat := range skippedPatterns {
		if strings.Contains(lower, pat) {
			return false
		}
	}
	return !adToken.MatchString(path)
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := s.Attr(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// tooSmall checks the declared size, from attributes or inline style.
func tooSmall(img *goquery.Selection) bool {
	dims := map[string]int{}
	for _, k := range []string{"width", "height"} {
		if v, ok := img.Attr(k); ok {
			if n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px")); err == nil {
				dims[k] = n
			}
		}
	}
	if style, ok := img.Attr("style"); ok {
		for _, m := range styleDim.FindAllStringSubmatch(style, -1) {
			if n, err := strconv.Atoi(m[2]); err == nil {
				dims[m[1]] = n
			}
		}
	}
	w, h := dims["width"], dims["height"]
	return w > 0 && h > 0 && (w < minDeclaredSide || h < minDeclaredSide)
}

func resolve(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

func itemprop(doc *goquery.Document, name string) string {
	sel := doc.Find(`[itemprop="` + name + `"]`).First()
	if v, ok := sel.Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	return text(sel)
}

func availability(doc *goquery.Document) string {
	v := itemprop(doc, "availability")
	if i := strings.LastIndex(v, "/"); i >= 0 {
		v = v[i+1:]
	}
	if v == "" {
		sel := doc.Find(`[class*="availability"], [class*="stock"]`).First()
		v = text(sel)
	}
	return v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
