package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/orientation-mcp/internal/imaging"
	"github.com/ironsheep/orientation-mcp/internal/orientation"
	"github.com/ironsheep/orientation-mcp/internal/pipeline"
	"github.com/ironsheep/orientation-mcp/internal/rose"
)

// errInvalidArguments marks tool failures caused by the caller's arguments.
var errInvalidArguments = errors.New("invalid arguments")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "orientation_lines").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments and out-of-range parameters return code -32602; any other
// tool failure returns code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, errInvalidArguments) || errors.Is(err, pipeline.ErrInvalidParameter) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Starts from the configured default parameters
//  2. Unmarshals arguments from JSON over them
//  3. Loads images from cache as needed
//  4. Runs the pipeline or one of its stages
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Orientation Extraction
	case "orientation_edge_detect":
		return s.handleEdgeDetect(args)
	case "orientation_structure_tensor":
		return s.handleAnalysis(args, pipeline.MethodStructureTensor)
	case "orientation_lines":
		return s.handleAnalysis(args, pipeline.MethodHough)
	case "orientation_grains":
		return s.handleAnalysis(args, pipeline.MethodGrains)
	case "orientation_rose":
		return s.handleRose(args)
	case "orientation_analyze":
		return s.handleAnalysis(args, "")

	default:
		return nil, fmt.Errorf("%w: unknown tool: %s", errInvalidArguments, name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments into v. Missing arguments leave v
// untouched.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	return nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Orientation Handlers ===

// analysisArgs overlays tool arguments on the configured pipeline
// parameters; any Params field may be given by its JSON name.
type analysisArgs struct {
	Path string `json:"path"`
	pipeline.Params

	IncludeSamples bool    `json:"include_samples"`
	RenderRose     bool    `json:"render_rose"`
	Overlay        bool    `json:"overlay"`
	OverlayColor   string  `json:"overlay_color"`
	OverlayWidth   float64 `json:"overlay_width"`
}

// analysisResult is a pipeline result plus the optional images. The
// per-sample fields shadow the embedded ones so they are only sent on
// request.
type analysisResult struct {
	*pipeline.Result

	Azimuths      []float64            `json:"azimuths,omitempty"`
	TensorSamples []orientation.Sample `json:"tensor_samples,omitempty"`

	RoseImageBase64 string                 `json:"rose_image_base64,omitempty"`
	RoseMimeType    string                 `json:"rose_mime_type,omitempty"`
	Overlay         *imaging.OverlayResult `json:"overlay,omitempty"`
}

func (s *Server) decodeAnalysisArgs(args json.RawMessage) (*analysisArgs, error) {
	a := &analysisArgs{Params: s.cfg.Analysis}
	// A region given in the arguments, by bounds or by name, replaces the
	// configured one.
	a.Region, a.RegionName = nil, ""
	if err := decodeArgs(args, a); err != nil {
		return nil, err
	}
	if a.Region == nil && a.RegionName == "" {
		a.Region, a.RegionName = s.cfg.Analysis.Region, s.cfg.Analysis.RegionName
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", errInvalidArguments)
	}
	return a, nil
}

func (s *Server) handleEdgeDetect(args json.RawMessage) (interface{}, error) {
	a, err := s.decodeAnalysisArgs(args)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return pipeline.EdgeMap(img, a.Params)
}

// handleAnalysis runs the pipeline. A non-empty method overrides whatever
// the arguments or configuration select.
func (s *Server) handleAnalysis(args json.RawMessage, method string) (interface{}, error) {
	a, err := s.decodeAnalysisArgs(args)
	if err != nil {
		return nil, err
	}
	if method != "" {
		a.Method = method
	}

	result, err := pipeline.AnalyzeFile(s.cache, a.Path, a.Params)
	if err != nil {
		return nil, err
	}

	out := &analysisResult{Result: result}
	if a.IncludeSamples {
		out.Azimuths = result.Azimuths
		out.TensorSamples = result.TensorSamples
	}
	if a.RenderRose {
		png, err := rose.Render(result.Histogram, s.cfg.RenderOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to render rose diagram: %w", err)
		}
		out.RoseImageBase64 = base64.StdEncoding.EncodeToString(png)
		out.RoseMimeType = "image/png"
	}
	if a.Overlay && result.Lines != nil {
		out.Overlay, err = imaging.Overlay(result.Prepared, result.Strokes(), a.OverlayColor, a.OverlayWidth)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

type roseArgs struct {
	Angles []float64 `json:"angles"`
	Bins   int       `json:"bins"`
	Render bool      `json:"render"`
	Title  string    `json:"title"`
	Size   int       `json:"size"`
}

type roseResult struct {
	*rose.Histogram
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

func (s *Server) handleRose(args json.RawMessage) (interface{}, error) {
	a := roseArgs{Bins: s.cfg.Analysis.Bins}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	h, err := rose.Aggregate(a.Angles, a.Bins)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	out := &roseResult{Histogram: h}
	if !a.Render {
		return out, nil
	}

	opts := s.cfg.RenderOptions()
	opts.Title = a.Title
	if a.Size != 0 {
		opts.Size = a.Size
	}
	png, err := rose.Render(h, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	out.ImageBase64 = base64.StdEncoding.EncodeToString(png)
	out.MimeType = "image/png"
	return out, nil
}
