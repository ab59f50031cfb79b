// Package export writes recorded rollouts as CSV, JSON and gonum/plot
// images.
package export
