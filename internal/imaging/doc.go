// Package imaging provides the raster primitives used by the orientation
// pipeline.
//
// It loads and caches source images, converts them to floating point
// intensity rasters, and implements the filters the analysis stages are
// built from: separable Gaussian smoothing, Sobel gradients, Canny and
// threshold edge detection. It also crops and downsizes images before
// analysis and draws detected segments back onto the source image.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Rasters and edge masks always start at (0,0) regardless of the bounds of
// the image they were built from.
//
// # Boundary Handling
//
// Filters read outside the raster through a BoundaryMode. Reflect repeats
// the edge pixel (d c b a | a b c d | d c b a), Mirror does not
// (d c b | a b c d | c b a), Nearest clamps, Wrap tiles and Constant
// reads zero.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All filter functions
// allocate their output and never modify their input, so they can be
// called concurrently on shared rasters.
//
// # Performance Considerations
//
// For repeated operations on the same image, use ImageCache to avoid redundant
// disk reads. Large images may consume significant memory when cached.
// Consider using Evict() or Clear() to manage memory for long-running processes.
package imaging
