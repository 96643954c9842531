package workflow

import (
	"fmt"
	"maps"

	"github.com/raushankrgupta/fitly-comfy-tryon/models"
)

// SegmentMask selects which body/clothing labels ClothesSegment keeps in the mask.
type SegmentMask map[string]bool

// SegmentLabels are the labels understood by the ClothesSegment node.
var SegmentLabels = []string{
	"Hat", "Hair", "Face", "Sunglasses", "Upper-clothes", "Skirt", "Dress", "Belt", "Pants",
	"Left-arm", "Right-arm", "Left-leg", "Right-leg", "Bag", "Scarf", "Left-shoe", "Right-shoe",
	"Background",
}

func mask(on ...string) SegmentMask {
	m := make(SegmentMask, len(SegmentLabels))
	for _, l := range SegmentLabels {
		m[l] = false
	}
	for _, l := range on {
		m[l] = true
	}
	return m
}

var presets = map[models.Category]SegmentMask{
	models.CategoryUpper: mask("Upper-clothes", "Left-arm", "Right-arm"),
	models.CategoryLower: mask("Skirt", "Pants", "Left-leg", "Right-leg", "Left-shoe", "Right-shoe"),
	models.CategoryDress: mask("Upper-clothes", "Skirt", "Dress", "Left-arm", "Right-arm",
		"Left-leg", "Right-leg", "Left-shoe", "Right-shoe"),
}

// Preset returns a copy of the mask for a garment category.
func Preset(c models.Category) (SegmentMask, error) {
	p, ok := presets[c]
	if !ok {
		return nil, fmt.Errorf("no segmentation preset for category %q", c)
	}
	return maps.Clone(p), nil
}

// SegmentParams are the fixed ClothesSegment settings applied with every preset.
type SegmentParams struct {
	ProcessRes      int
	MaskBlur        int
	MaskOffset      int
	BackgroundColor string
	InvertOutput    bool
}

var DefaultSegmentParams = SegmentParams{
	ProcessRes:      512,
	MaskBlur:        0,
	MaskOffset:      -10,
	BackgroundColor: "Alpha",
	InvertOutput:    true,
}
