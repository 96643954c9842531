package workflow

import (
	"fmt"

	"github.com/raushankrgupta/fitly-comfy-tryon/models"
)

// Build clones the template and fills in the uploaded image names and the
// segmentation preset for the garment category. Only leaf inputs change; the
// template itself is never modified.
func Build(template Graph, modelImage, garmentImage string, category models.Category) (Graph, error) {
	preset, err := Preset(category)
	if err != nil {
		return nil, err
	}
	g, err := template.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone workflow: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	g[NodeModelImage].Inputs["image"] = modelImage
	g[NodeGarmentImage].Inputs["image"] = garmentImage

	seg := g[NodeSegment].Inputs
	for label, on := range preset {
		seg[label] = on
	}
	p := DefaultSegmentParams
	seg["process_res"] = p.ProcessRes
	seg["mask_blur"] = p.MaskBlur
	seg["mask_offset"] = p.MaskOffset
	seg["background_color"] = p.BackgroundColor
	seg["invert_output"] = p.InvertOutput

	return g, nil
}
