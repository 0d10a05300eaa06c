// Package palette computes dominant color palettes from comic cover images.
package palette

import (
	"fmt"
	"image"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/pkg/errors"
)

// workingSize bounds the longest side of the working copy that the K-means
// clustering runs on. Covers are often 2000px+; clustering the full image
// would dominate pipeline CPU time for no visible accuracy gain.
const workingSize = 150

// colorCount is the number of clusters requested from K-means.
const colorCount = 5

type Palette struct {
	Primary   *string `json:"primary"`
	Secondary *string `json:"secondary"`
	Accent1   *string `json:"accent1"`
	Accent2   *string `json:"accent2"`
	Accent3   *string `json:"accent3"`
}

// Extract computes the dominant palette of an already-decoded cover image.
// The clustering runs on a downscaled copy; the caller keeps the full
// resolution image for thumbnail encoding.
func Extract(img image.Image) (p *Palette, err error) {
	// The clustering library panics on some degenerate inputs (tiny or
	// single-color images), so convert that into an error the pipeline can
	// count.
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = errors.Errorf("palette clustering panicked: %v", r)
		}
	}()

	// No cropping and no background masks: covers are dense artwork, so the
	// plain frequency ranking is what we want.
	items, err := prominentcolor.KmeansWithAll(colorCount, img, prominentcolor.ArgumentNoCropping, workingSize, nil)
	if err != nil {
		return nil, errors.Wrap(err, "palette clustering failed")
	}

	p = &Palette{}
	slots := []**string{&p.Primary, &p.Secondary, &p.Accent1, &p.Accent2, &p.Accent3}
	for i, item := range items {
		if i >= len(slots) {
			break
		}
		hex := hexColor(item)
		*slots[i] = &hex
	}

	return p, nil
}

func hexColor(item prominentcolor.ColorItem) string {
	return fmt.Sprintf("#%02x%02x%02x", item.Color.R, item.Color.G, item.Color.B)
}
