package ocr

import (
	"fmt"
	"image"
	"slices"

	"github.com/disintegration/imaging"
)

const contrastFactor = 1.5

// enhanceImage writes a grayscale copy of src to dst with contrast stretched
// around the mean intensity and a 3x3 median filter applied. dst is encoded
// by its extension.
func enhanceImage(src, dst string) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}
	if err := imaging.Save(enhanceGray(imaging.Grayscale(img)), dst); err != nil {
		return fmt.Errorf("write enhanced image: %w", err)
	}
	return nil
}

func enhanceGray(gray *image.NRGBA) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	levels := make([]float64, w*h)
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(gray.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y).R)
			levels[y*w+x] = v
			sum += v
		}
	}
	mean := sum / float64(len(levels))
	for i, v := range levels {
		levels[i] = min(max((v-mean)*contrastFactor+mean, 0), 255)
	}

	window := make([]float64, 0, 9)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window = append(window, levels[clamp(y+dy, h)*w+clamp(x+dx, w)])
				}
			}
			slices.Sort(window)
			out.Pix[y*out.Stride+x] = uint8(window[4])
		}
	}
	return out
}

// clamp repeats edge pixels for neighbours outside the image.
func clamp(i, n int) int {
	return min(max(i, 0), n-1)
}
