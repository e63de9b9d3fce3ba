// Package detection extracts orientation samples from linear features and
// grains in an image.
//
// Two extractors live here, and both report compass azimuths in [0°, 180°)
// as defined by the orientation package.
//
// # Line Segments
//
// DetectLines runs the progressive probabilistic Hough transform over an
// edge mask. Edge pixels vote in random order, and a segment is traced as
// soon as one (rho, theta) bin collects enough votes. The pixels of every
// accepted segment are removed, so later segments come from the remaining
// edges only. Results depend on the visiting order; LineOptions.Seed makes
// a run repeatable.
//
// # Grains
//
// SLIC partitions an image into superpixels by clustering pixels jointly
// on CIELAB color and position. Grains then measures each superpixel's
// inertia tensor, the covariance of its pixel coordinates, and reports the
// direction of its long axis along with its size, elongation and mean
// color. Regions too small or too round to have a long axis are skipped
// and counted.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Performance Considerations
//
// The Hough transform touches every angle for every edge pixel it visits;
// SLIC touches a 2S×2S window per cluster per iteration. For large images,
// consider:
//   - Cropping to regions of interest first
//   - Downsizing before analysis, which leaves azimuths unchanged
//   - Raising the Canny thresholds to thin out the edge mask
package detection
