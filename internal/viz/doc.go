// Package viz is the terminal front end of the motor simulator.
//
// [Model] is a Bubble Tea program that observes a running control loop: it
// polls the shared telemetry window on every frame, draws the shaft angle on
// a Braille [Canvas] and the four series with asciigraph, and edits a config
// snapshot that it publishes through the loop's link.
//
// # Key Bindings
//
//	s       - Start tracking the live target
//	x       - Stop (resets the loop)
//	1 2 3   - Calibrate position / velocity / torque
//	m       - Toggle pos / pos_vel_trq
//	tab     - Select gain or motor parameter
//	↑ ↓     - Scale selection by ±5%
//	← →     - Move the live target by 5°
//	t       - Cycle themes
//	q       - Quit
package viz
