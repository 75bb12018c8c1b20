// Package content turns a product page into facts and facts into ad copy.
package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivlev/adreel/internal/models"
)

// ErrUpstreamSource matches every UpstreamError.
var ErrUpstreamSource = errors.New("upstream source failure")

// UpstreamError is a failure of an external collaborator (page fetch,
// extraction, copywriting model) that leaves nothing to render.
type UpstreamError struct {
	Stage string
	Ref   string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Ref, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamSource }

// FactsSource extracts product facts from a page URL.
type FactsSource interface {
	Fetch(ctx context.Context, url string) (models.ProductFacts, error)
}

// ScriptSource writes ad copy for a product.
type ScriptSource interface {
	Generate(ctx context.Context, facts models.ProductFacts) (models.AdScript, error)
}
