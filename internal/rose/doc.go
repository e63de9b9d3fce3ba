// Package rose aggregates orientation samples into rose diagrams.
//
// A rose diagram is a circular histogram over [0°, 360°). Lines have no
// direction, so every azimuth θ is counted at both θ and θ+180°, and the
// two halves of the diagram are always identical.
package rose
