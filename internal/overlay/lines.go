package overlay

import (
	"regexp"
	"strings"

	"github.com/ivlev/adreel/internal/models"
	"github.com/ivlev/adreel/internal/templates"
)

const MaxBullets = 5

type Line struct {
	Role templates.Role
	Text string
}

var (
	bulletMarker = regexp.MustCompile(`^\s*(?:[•*·]\s*|[-–](?:\s+|$))+`)
	labelPrefix  = regexp.MustCompile(`^[^:]{1,40}:\s*`)
)

// Lines orders the script as headline, the first MaxBullets bullets (cleaned)
// and the call to action. Headline and call to action are always present,
// even when empty; bullets that clean down to nothing are skipped.
func Lines(s models.AdScript) []Line {
	out := []Line{{Role: templates.RoleHeadline, Text: strings.TrimSpace(s.Headline)}}
	bullets := s.Bullets
	if len(bullets) > MaxBullets {
		bullets = bullets[:MaxBullets]
	}
	for _, b := range bullets {
		if b = CleanBullet(b); b != "" {
			out = append(out, Line{Role: templates.RoleBullet, Text: b})
		}
	}
	return append(out, Line{Role: templates.RoleCTA, Text: strings.TrimSpace(s.CallToAction)})
}

// CleanBullet removes markdown emphasis, leading list markers and a leading
// "Label:" prefix.
func CleanBullet(b string) string {
	b = strings.ReplaceAll(b, "**", "")
	b = strings.ReplaceAll(b, "*", "")
	b = bulletMarker.ReplaceAllString(b, "")
	if loc := labelPrefix.FindStringIndex(b); loc != nil && loc[1] < len(b) {
		b = b[loc[1]:]
	}
	return strings.TrimSpace(b)
}
