package templates

import (
	_ "embed"
	"fmt"
	"image/color"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

type catalogFile struct {
	Default   string         `yaml:"default"`
	Templates []catalogEntry `yaml:"templates"`
}

type catalogEntry struct {
	Key             string                `yaml:"key"`
	Name            string                `yaml:"name"`
	Description     string                `yaml:"description"`
	Theme           string                `yaml:"theme"`
	BackgroundStyle string                `yaml:"background_style"`
	Background      [][]int               `yaml:"background"`
	AnimationSpeed  float64               `yaml:"animation_speed"`
	Transition      string                `yaml:"transition"`
	Styles          map[string]styleEntry `yaml:"styles"`
}

type styleEntry struct {
	Font      string  `yaml:"font"`
	Size      float64 `yaml:"size"`
	Color     []int   `yaml:"color"`
	Outline   []int   `yaml:"outline"`
	Plate     []int   `yaml:"plate"`
	Animation string  `yaml:"animation"`
}

// Registry is a read-only catalog of templates. It has no mutation API.
type Registry struct {
	byKey    map[string]Template
	order    []string
	fallback string
}

var (
	builtinOnce sync.Once
	builtin     *Registry
)

// Builtin returns the process-wide registry parsed from the embedded catalog.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		r, err := Parse(builtinCatalog)
		if err != nil {
			panic(fmt.Sprintf("templates: embedded catalog: %v", err))
		}
		builtin = r
	})
	return builtin
}

// Parse builds a registry from a YAML catalog document.
func Parse(data []byte) (*Registry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("catalog has no templates")
	}

	r := &Registry{byKey: make(map[string]Template, len(f.Templates))}
	for _, e := range f.Templates {
		if e.Key == "" {
			return nil, fmt.Errorf("template without key")
		}
		if _, dup := r.byKey[e.Key]; dup {
			return nil, fmt.Errorf("duplicate template %q", e.Key)
		}
		t, err := e.toTemplate()
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", e.Key, err)
		}
		r.byKey[e.Key] = t
		r.order = append(r.order, e.Key)
	}

	r.fallback = f.Default
	if r.fallback == "" {
		r.fallback = r.order[0]
	}
	if _, ok := r.byKey[r.fallback]; !ok {
		return nil, fmt.Errorf("default template %q is not in the catalog", r.fallback)
	}
	return r, nil
}

// Get returns the named template, or the default one when name is unknown.
func (r *Registry) Get(name string) Template {
	if t, ok := r.byKey[name]; ok {
		return t.clone()
	}
	return r.byKey[r.fallback].clone()
}

// Lookup is the strict variant of Get.
func (r *Registry) Lookup(name string) (Template, bool) {
	t, ok := r.byKey[name]
	if !ok {
		return Template{}, false
	}
	return t.clone(), true
}

// DefaultKey is the key Get falls back to.
func (r *Registry) DefaultKey() string { return r.fallback }

// List returns the catalog in declaration order.
func (r *Registry) List() []Summary {
	out := make([]Summary, 0, len(r.order))
	for _, k := range r.order {
		t := r.byKey[k]
		out = append(out, Summary{Key: t.Key, Name: t.Name, Description: t.Description, Theme: t.Theme})
	}
	return out
}

func (e catalogEntry) toTemplate() (Template, error) {
	t := Template{
		Key:             e.Key,
		Name:            e.Name,
		Description:     e.Description,
		Theme:           e.Theme,
		BackgroundStyle: e.BackgroundStyle,
		AnimationSpeed:  e.AnimationSpeed,
		Transition:      Transition(e.Transition),
		Styles:          make(map[Role]TextStyle, len(e.Styles)),
	}
	if t.BackgroundStyle == "" {
		t.BackgroundStyle = StyleGradient
	}
	if t.AnimationSpeed <= 0 {
		return Template{}, fmt.Errorf("animation_speed must be positive")
	}
	switch t.Transition {
	case TransitionCrossfade, TransitionSlide, TransitionZoom:
	case "":
		t.Transition = TransitionCrossfade
	default:
		return Template{}, fmt.Errorf("unknown transition %q", e.Transition)
	}

	for _, c := range e.Background {
		rgb, err := toColor(c)
		if err != nil {
			return Template{}, fmt.Errorf("background: %w", err)
		}
		t.Background = append(t.Background, rgb)
	}

	for role, s := range e.Styles {
		style := TextStyle{Font: s.Font, Size: s.Size, Animation: Animation(s.Animation)}
		var err error
		if style.Color, err = toColor(s.Color); err != nil {
			return Template{}, fmt.Errorf("%s color: %w", role, err)
		}
		if style.Outline, err = toColor(s.Outline); err != nil {
			return Template{}, fmt.Errorf("%s outline: %w", role, err)
		}
		if style.Plate, err = toColor(s.Plate); err != nil {
			return Template{}, fmt.Errorf("%s plate: %w", role, err)
		}
		t.Styles[Role(role)] = style
	}
	if _, ok := t.Styles[RoleHeadline]; !ok {
		return Template{}, fmt.Errorf("headline style is required")
	}
	return t, nil
}

// toColor accepts [r g b] or [r g b a].
func toColor(c []int) (color.RGBA, error) {
	if len(c) != 3 && len(c) != 4 {
		return color.RGBA{}, fmt.Errorf("expected 3 or 4 components, got %d", len(c))
	}
	v := [4]uint8{255, 255, 255, 255}
	for i, n := range c {
		if n < 0 || n > 255 {
			return color.RGBA{}, fmt.Errorf("component %d out of range: %d", i, n)
		}
		v[i] = uint8(n)
	}
	return color.RGBA{R: v[0], G: v[1], B: v[2], A: v[3]}, nil
}
