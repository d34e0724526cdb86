// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"image"

	"github.com/disintegration/imaging"
)

const (
	contrastBoost = 100 // percent; doubles the distance from mid-gray
	sharpenSigma  = 1.0
)

// Preprocess prepares a photo for recognition: grayscale, doubled
// contrast, then a light sharpen.
func Preprocess(img image.Image) image.Image {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, contrastBoost)
	return imaging.Sharpen(out, sharpenSigma)
}
