package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"image_load",
		"image_dimensions",
		"orientation_edge_detect",
		"orientation_structure_tensor",
		"orientation_lines",
		"orientation_grains",
		"orientation_rose",
		"orientation_analyze",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("tool %s defined twice", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}
			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("InputSchema required should be a string slice")
			}
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required property %s is not defined", r)
				}
			}
		})
	}
}

func TestToolDefinitions_Properties(t *testing.T) {
	tools := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		tools[tool.Name] = tool
	}

	tests := []struct {
		tool string
		want []string
	}{
		{"orientation_structure_tensor", []string{"path", "sigma", "boundary", "percentile", "stride", "bins", "region", "region_name", "max_dimension"}},
		{"orientation_lines", []string{"path", "edge_detector", "line_length", "line_gap_ratio", "hough_threshold", "seed", "overlay"}},
		{"orientation_grains", []string{"path", "segments", "compactness", "slic_sigma", "min_grain_area"}},
		{"orientation_rose", []string{"angles", "bins", "render", "title", "size"}},
		{"orientation_analyze", []string{"path", "method", "sigma", "line_length", "segments", "render_rose", "include_samples"}},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			props := tools[tt.tool].InputSchema["properties"].(map[string]interface{})
			for _, name := range tt.want {
				if _, ok := props[name]; !ok {
					t.Errorf("property %s missing", name)
				}
			}
		})
	}
}

func TestToolDefinitions_LinesHasNoGrainProperties(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if tool.Name != "orientation_lines" {
			continue
		}
		props := tool.InputSchema["properties"].(map[string]interface{})
		if _, ok := props["segments"]; ok {
			t.Error("orientation_lines should not expose SLIC parameters")
		}
	}
}
