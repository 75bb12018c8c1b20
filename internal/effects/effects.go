package effects

import "math"

// Window is a normalized source rectangle; {0,0,1,1} is the whole element.
type Window struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

var Full = Window{X: 0, Y: 0, W: 1, H: 1}

// Transform is the sampled state of an animated element at one instant.
type Transform struct {
	Crop       Window
	Opacity    float64
	Scale      float64 // about the element center
	Brightness float64 // channel multiplier
	OffsetX    float64 // fraction of canvas width
}

func Identity() Transform {
	return Transform{Crop: Full, Opacity: 1, Scale: 1, Brightness: 1}
}

// Compose applies o on top of t: crops nest, scalars multiply, offsets add.
func (t Transform) Compose(o Transform) Transform {
	return Transform{
		Crop: Window{
			X: t.Crop.X + o.Crop.X*t.Crop.W,
			Y: t.Crop.Y + o.Crop.Y*t.Crop.H,
			W: t.Crop.W * o.Crop.W,
			H: t.Crop.H * o.Crop.H,
		},
		Opacity:    t.Opacity * o.Opacity,
		Scale:      t.Scale * o.Scale,
		Brightness: t.Brightness * o.Brightness,
		OffsetX:    t.OffsetX + o.OffsetX,
	}
}

// centered returns the window of a centered zoom by factor z >= 1.
func centered(z float64) Window {
	if z < 1 {
		z = 1
	}
	s := 1 / z
	return Window{X: (1 - s) / 2, Y: (1 - s) / 2, W: s, H: s}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// easeInOutCubic keeps transition blends from starting and stopping abruptly.
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}
