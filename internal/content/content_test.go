package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ivlev/adreel/internal/models"
)

const productPage = `<!doctype html>
<html><head>
<title>Shop | Aurora Headphones</title>
<meta name="description" content="Wireless over-ear headphones with adaptive noise cancelling.">
</head><body>
<header><img src="/static/logo.png" alt="logo"></header>
<h1 class="product-title">Aurora Wireless Headphones</h1>
<div class="price-box"><span class="price">$129.99</span></div>
<div itemprop="brand" content="Aurora"></div>
<span itemprop="ratingValue">4.6</span>
<meta itemprop="availability" content="https://schema.org/InStock">
<div class="product-description">Immersive sound with forty hours of battery life and fast charging.</div>
<ul class="features">
  <li>Adaptive noise cancelling</li>
  <li>40 hour battery life</li>
  <li>short</li>
  <li>Adaptive noise cancelling</li>
</ul>
<img src="/img/main.jpg" width="800" height="800">
<img data-src="//cdn.example.com/img/side.png">
<img src="/img/main.jpg">
<img src="/img/tiny.jpg" width="40" height="40">
<img src="/img/styled.jpg" style="width: 50px; height: 60px">
<img src="/img/anim.gif">
<img src="/img/vector.svg">
<img src="/img/ads/promo.jpg">
<img src="/img/loading-pixel.jpg">
<img data-old-hires="/img/hires.jpg" src="/img/lowres.jpg">
</body></html>`

func TestExtractFromFixture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, productPage)
	}))
	defer srv.Close()

	facts, err := NewPageScraper(srv.Client(), zaptest.NewLogger(t)).Fetch(context.Background(), srv.URL+"/p/aurora")
	require.NoError(t, err)

	assert.Equal(t, "Aurora Wireless Headphones", facts.Title)
	assert.Equal(t, "$129.99", facts.Price)
	assert.Equal(t, "Immersive sound with forty hours of battery life and fast charging.", facts.Description)
	assert.Equal(t, []string{"Adaptive noise cancelling", "40 hour battery life"}, facts.Features)
	assert.Equal(t, "Aurora", facts.Brand)
	assert.Equal(t, "4.6", facts.Rating)
	assert.Equal(t, "InStock", facts.Availability)
	assert.Equal(t, []string{
		srv.URL + "/img/main.jpg",
		"http://cdn.example.com/img/side.png",
		srv.URL + "/img/hires.jpg",
	}, facts.Images)
}

func TestFetchFailures(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	s := NewPageScraper(srv.Client(), zaptest.NewLogger(t))

	_, err := s.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUpstreamSource)

	_, err = s.Fetch(context.Background(), "ftp://example.com/p")
	assert.ErrorIs(t, err, ErrUpstreamSource)

	var up *UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, "scrape", up.Stage)
}

func TestImagesCapped(t *testing.T) {
	page := "<html><body>"
	for i := 0; i < 30; i++ {
		page += fmt.Sprintf(`<img src="/p/%d.jpg">`, i)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page+"</body></html>")
	}))
	defer srv.Close()

	facts, err := NewPageScraper(srv.Client(), nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, facts.Images, MaxPageImages)
	assert.Equal(t, srv.URL+"/p/0.jpg", facts.Images[0])
	assert.Equal(t, defaultTitle, facts.Title)
	assert.Equal(t, defaultDesc, facts.Description)
}

func TestKeepImage(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://x.com/a/product.jpg", true},
		{"https://x.com/a/product.JPG?w=100", true},
		{"https://x.com/a/product.webp", false},
		{"https://x.com/a/site-logo.png", false},
		{"https://x.com/ads/1.jpg", false},
		{"https://x.com/ad-slot.jpg", false},
		{"https://x.com/uploads/shoe.jpg", true},
		{"https://x.com/headphones.jpg", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, KeepImage(tt.url))
		})
	}
}

func TestParseScript(t *testing.T) {
	out := `HEADLINE: Hear Everything Again
BULLET POINTS (start bullet points with - or *):
- Forty hours of playback
* Noise cancelling that adapts
• Ok
- Folds flat for travel
CALL TO ACTION: SHOP TODAY!`

	s := ParseScript(out, models.ProductFacts{Title: "Aurora"})
	assert.Equal(t, "Hear Everything Again", s.Headline)
	assert.Equal(t, []string{"Forty hours of playback", "Noise cancelling that adapts", "Folds flat for travel"}, s.Bullets)
	assert.Equal(t, "SHOP TODAY!", s.CallToAction)
}

func TestParseScriptFillsGaps(t *testing.T) {
	s := ParseScript("- tiny\n", models.ProductFacts{Title: "Aurora Headphones", Price: "$99"})
	assert.Equal(t, "AURORA HEADPHONES", s.Headline)
	assert.Equal(t, DefaultCTA, s.CallToAction)
	require.Len(t, s.Bullets, 3)
	assert.Equal(t, "Only $99 - Limited Time!", s.Bullets[1])

	long := "HEADLINE: h\n"
	for i := 0; i < 12; i++ {
		long += fmt.Sprintf("- bullet number %d\n", i)
	}
	assert.Len(t, ParseScript(long, models.ProductFacts{}).Bullets, MaxBullets)

	first := ParseScript("Grab yours\n- a long enough bullet\nBuy it today", models.ProductFacts{})
	assert.Equal(t, "Grab yours", first.Headline)
	assert.Equal(t, "Buy it today", first.CallToAction)
}

func TestTemplateScript(t *testing.T) {
	s := TemplateScript(models.ProductFacts{
		Title:    "Aurora",
		Price:    "$129",
		Features: []string{"**Loud**", "Light", "", "Long", "Fast", "Smart", "Extra"},
	})
	assert.Equal(t, "AURORA - GAME CHANGER!", s.Headline)
	assert.Equal(t, []string{"Loud", "Light", "Long", "Fast", "Smart", "Only $129 - Limited Time!"}, s.Bullets)
	assert.Equal(t, DefaultCTA, s.CallToAction)

	padded := TemplateScript(models.ProductFacts{Title: "X"})
	assert.Equal(t, []string{paddingBullet, paddingBullet, paddingBullet}, padded.Bullets)
}

type fakeLLM struct {
	text   string
	err    error
	prompt string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

func TestScriptWriter(t *testing.T) {
	facts := models.ProductFacts{Title: "Aurora", Features: []string{"Loud"}, Price: "$5"}
	ctx := context.Background()

	llm := &fakeLLM{text: "HEADLINE: Big Sound\n- Really loud speakers\nCTA: Order now"}
	s, err := NewScriptWriter(llm, zaptest.NewLogger(t)).Generate(ctx, facts)
	require.NoError(t, err)
	assert.Equal(t, "Big Sound", s.Headline)
	assert.Equal(t, "Order now", s.CallToAction)
	assert.Contains(t, llm.prompt, "Product: Aurora")
	assert.Contains(t, llm.prompt, "Price: $5")

	s, err = NewScriptWriter(&fakeLLM{err: errors.New("quota")}, zaptest.NewLogger(t)).Generate(ctx, facts)
	require.NoError(t, err)
	assert.Equal(t, TemplateScript(facts), s)

	s, err = NewScriptWriter(nil, nil).Generate(ctx, facts)
	require.NoError(t, err)
	assert.Equal(t, TemplateScript(facts), s)

	_, err = NewScriptWriter(nil, nil).Generate(ctx, models.ProductFacts{URL: "u"})
	assert.ErrorIs(t, err, ErrUpstreamSource)
}
