// Package pipeline runs a complete orientation analysis.
//
// Recompute is a pure function from an image and a Params value to a
// Result: it crops and downsizes the image, reduces it to grayscale,
// extracts orientation samples with the selected method and aggregates
// them into a rose histogram. Changing any parameter means calling
// Recompute again; nothing is cached between calls.
//
// AnalyzeFiles is the only concurrent entry point. It runs independent
// files on a bounded number of goroutines.
package pipeline
