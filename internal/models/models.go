package models

// ProductFacts is what a content source extracts from a product page.
type ProductFacts struct {
	URL          string   `json:"url" yaml:"url"`
	Title        string   `json:"title" yaml:"title"`
	Price        string   `json:"price,omitempty" yaml:"price,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Features     []string `json:"features,omitempty" yaml:"features,omitempty"`
	Images       []string `json:"images,omitempty" yaml:"images,omitempty"`
	Rating       string   `json:"rating,omitempty" yaml:"rating,omitempty"`
	Availability string   `json:"availability,omitempty" yaml:"availability,omitempty"`
	Brand        string   `json:"brand,omitempty" yaml:"brand,omitempty"`
	Category     string   `json:"category,omitempty" yaml:"category,omitempty"`
}

// AdScript is the copy rendered over the slideshow.
type AdScript struct {
	Headline     string   `json:"headline" yaml:"headline"`
	Bullets      []string `json:"bullets" yaml:"bullets"`
	CallToAction string   `json:"call_to_action" yaml:"call_to_action"`
}

// VideoRequest is one generation request as accepted by the API and CLI.
type VideoRequest struct {
	URL         string    `json:"url" yaml:"url"`
	Duration    float64   `json:"duration" yaml:"duration"`
	AspectRatio string    `json:"aspect_ratio" yaml:"aspect_ratio"`
	Template    string    `json:"template" yaml:"template"`
	Images      []string  `json:"images,omitempty" yaml:"images,omitempty"`
	Script      *AdScript `json:"script,omitempty" yaml:"script,omitempty"`
}

const (
	DefaultDuration = 30.0
	DefaultAspect   = "16:9"
	DefaultTemplate = "high_visibility"
)

// WithDefaults fills unset fields with the request defaults.
func (r VideoRequest) WithDefaults() VideoRequest {
	if r.Duration == 0 {
		r.Duration = DefaultDuration
	}
	if r.AspectRatio == "" {
		r.AspectRatio = DefaultAspect
	}
	if r.Template == "" {
		r.Template = DefaultTemplate
	}
	return r
}
