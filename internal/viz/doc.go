// Package viz renders a live UFO session in the terminal with Bubble Tea.
//
// [Model] steps the simulator once per frame and draws the saucer on a
// Braille [Canvas], next to theta and u charts and the current gains.
//
// # Key Bindings
//
//	Space  - pause or resume the plant
//	R      - reset state and gains
//	T      - fetch gains from the tuner
//	Tab    - select a gain; Up/Down adjust it
//	N      - cycle color themes
//	?      - show help overlay
package viz
