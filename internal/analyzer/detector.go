package analyzer

import (
	"fmt"
	"image"
)

// Block is a detected region of visual content.
type Block struct {
	Rect       image.Rectangle
	Confidence float64
}

type Detector interface {
	Detect(img image.Image) ([]Block, error)
}

// NewDetector returns the detector for variant: "contrast" (default) or
// "none", which accepts every image as one full-frame block.
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	case "none":
		return passthrough{}, nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}

type passthrough struct{}

func (passthrough) Detect(img image.Image) ([]Block, error) {
	return []Block{{Rect: img.Bounds(), Confidence: 1}}, nil
}
