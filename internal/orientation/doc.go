// Package orientation estimates local feature orientation from intensity
// gradients.
//
// The structure tensor of a raster is the Gaussian-weighted covariance of
// its Sobel gradient at every pixel. Its principal eigenvector points
// across the dominant local feature; the feature itself (a lineament,
// bedding trace or foliation) runs perpendicular to it.
//
// # Azimuth Convention
//
// Every angle reported by this package is a compass azimuth in degrees,
// measured clockwise from image-up, reduced to [0, 180). A line is the same
// line in both directions, so 30° and 210° are the same orientation.
// Image rows grow downward; the helpers here undo that before measuring.
package orientation
