package server

import (
	"github.com/ironsheep/orientation-mcp/internal/imaging"
	"github.com/ironsheep/orientation-mcp/internal/pipeline"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func property(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func enumProperty(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        values,
		"description": description,
	}
}

// objectSchema builds an input schema requiring path plus the listed
// property groups.
func objectSchema(required []string, groups ...map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{}
	for _, g := range groups {
		for k, v := range g {
			props[k] = v
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

var pathProperties = map[string]interface{}{
	"path": property("string", "Absolute path to the image file"),
}

var preparationProperties = map[string]interface{}{
	"region": map[string]interface{}{
		"type":        "object",
		"description": "Optional region of interest; (x1,y1) inclusive, (x2,y2) exclusive",
		"properties": map[string]interface{}{
			"x1": property("integer", "Left edge X coordinate (0-based)"),
			"y1": property("integer", "Top edge Y coordinate (0-based)"),
			"x2": property("integer", "Right edge X coordinate (exclusive)"),
			"y2": property("integer", "Bottom edge Y coordinate (exclusive)"),
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	},
	"region_name":   enumProperty("Named region of interest, instead of region", imaging.RegionNames...),
	"max_dimension": property("integer", "Downsize so the longest side is at most this many pixels. 0 keeps full resolution"),
}

var tensorProperties = map[string]interface{}{
	"sigma": property("number", "Gaussian integration scale of the structure tensor in pixels"),
	"boundary": enumProperty("How filters read beyond the image border",
		string(imaging.BoundaryReflect), string(imaging.BoundaryMirror), string(imaging.BoundaryNearest),
		string(imaging.BoundaryWrap), string(imaging.BoundaryConstant)),
	"percentile": property("number", "Keep pixels whose anisotropy exceeds this percentile, [0,100)"),
	"stride":     property("integer", "Sample every stride-th pixel in each direction"),
}

var edgeProperties = map[string]interface{}{
	"edge_detector":      enumProperty("Edge detector", imaging.DetectorCanny, imaging.DetectorThreshold),
	"canny_sigma":        property("number", "Gaussian smoothing before edge detection"),
	"canny_low":          property("number", "Canny low hysteresis threshold (gradient magnitude)"),
	"canny_high":         property("number", "Canny high hysteresis threshold (gradient magnitude)"),
	"gradient_threshold": property("number", "Threshold detector cut-off as a fraction of the maximum gradient, (0,1]"),
}

var lineProperties = map[string]interface{}{
	"line_length":     property("integer", "Minimum accepted segment length in pixels"),
	"line_gap_ratio":  property("number", "Largest bridged gap as a fraction of line_length"),
	"hough_threshold": property("integer", "Accumulator votes needed before a line is traced"),
	"seed":            property("integer", "Random seed for pixel order. 0 draws one and reports it"),
}

var grainProperties = map[string]interface{}{
	"segments":       property("integer", "Approximate number of superpixels"),
	"compactness":    property("number", "SLIC colour against space weighting; higher gives squarer superpixels"),
	"slic_sigma":     property("number", "Gaussian pre-smoothing for SLIC, 0 disables"),
	"min_grain_area": property("integer", "Grains with fewer pixels are ignored"),
}

var outputProperties = map[string]interface{}{
	"bins":            property("integer", "Rose diagram bin count over 360°, even"),
	"include_samples": property("boolean", "Include every individual azimuth sample in the result"),
	"render_rose":     property("boolean", "Include the rose diagram as base64-encoded PNG"),
}

var overlayProperties = map[string]interface{}{
	"overlay":       property("boolean", "Include the image with detected segments drawn on it as base64-encoded PNG"),
	"overlay_color": property("string", "Segment colour as hex (#RRGGBB)"),
	"overlay_width": property("number", "Segment stroke width in pixels"),
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The image stays cached for subsequent operations.",
			InputSchema: objectSchema([]string{"path"}, pathProperties),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: objectSchema([]string{"path"}, pathProperties),
		},

		// Orientation Extraction
		{
			Name:        "orientation_edge_detect",
			Description: "Compute the binary edge map the line extractor votes on. Returns the mask as base64-encoded PNG with its edge pixel count.",
			InputSchema: objectSchema([]string{"path"}, pathProperties, preparationProperties, edgeProperties),
		},
		{
			Name:        "orientation_structure_tensor",
			Description: "Measure dominant lineament azimuths from the local structure tensor. Returns a rose histogram with the axial mean azimuth (degrees clockwise from image up, [0,180)).",
			InputSchema: objectSchema([]string{"path"}, pathProperties, preparationProperties, tensorProperties, outputProperties),
		},
		{
			Name:        "orientation_lines",
			Description: "Detect straight line segments with the progressive probabilistic Hough transform and report their azimuths. Optionally returns an overlay of the segments.",
			InputSchema: objectSchema([]string{"path"}, pathProperties, preparationProperties, edgeProperties, lineProperties, outputProperties, overlayProperties),
		},
		{
			Name:        "orientation_grains",
			Description: "Segment the image into SLIC superpixels and measure each grain's long-axis azimuth from its second moments.",
			InputSchema: objectSchema([]string{"path"}, pathProperties, preparationProperties, grainProperties, outputProperties),
		},
		{
			Name:        "orientation_rose",
			Description: "Aggregate caller-supplied azimuths (degrees, axial) into a symmetric rose histogram, optionally rendered as PNG.",
			InputSchema: objectSchema([]string{"angles"}, map[string]interface{}{
				"angles": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "number"},
					"description": "Azimuths in degrees; reduced modulo 180",
				},
				"bins":   property("integer", "Bin count over 360°, even"),
				"render": property("boolean", "Include the rose diagram as base64-encoded PNG"),
				"title":  property("string", "Optional title drawn above the diagram"),
				"size":   property("integer", "Diagram width and height in pixels"),
			}),
		},
		{
			Name:        "orientation_analyze",
			Description: "Run the full orientation pipeline with any extraction method and every parameter available.",
			InputSchema: objectSchema([]string{"path"},
				pathProperties,
				map[string]interface{}{
					"method": enumProperty("Extraction method",
						pipeline.MethodStructureTensor, pipeline.MethodHough, pipeline.MethodGrains),
				},
				preparationProperties, tensorProperties, edgeProperties, lineProperties, grainProperties, outputProperties,
			),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
