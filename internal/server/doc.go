// Package server implements the MCP (Model Context Protocol) server for
// orientation analysis.
//
// The server speaks JSON-RPC 2.0 over stdio:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Orientation Extraction:
//   - orientation_edge_detect: Edge mask used by the line extractor
//   - orientation_structure_tensor: Lineament azimuths from image gradients
//   - orientation_lines: Probabilistic Hough line segments
//   - orientation_grains: SLIC superpixel grain long axes
//   - orientation_rose: Rose histogram of caller-supplied azimuths
//   - orientation_analyze: Full pipeline with any method
//
// Azimuths are reported in degrees clockwise from image up, in [0, 180).
// Arguments that a call leaves out take their value from the configuration
// the server was created with.
//
// # Image Caching
//
// Images are cached by path and reused across tool calls for the lifetime
// of the server process.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses:
//   - -32602: malformed arguments or an out-of-range parameter
//   - -32000: any other tool failure, such as an unreadable image
//   - -32601: unknown JSON-RPC method
//
// # Usage
//
//	srv := server.New(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
