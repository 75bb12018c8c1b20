package analyzer

import "image"

// HasContent reports whether det finds at least one block in img. Flat
// placeholder images (tracking pixels, blank fills) produce none.
func HasContent(det Detector, img image.Image) (bool, error) {
	blocks, err := det.Detect(img)
	if err != nil {
		return false, err
	}
	return len(blocks) > 0, nil
}
