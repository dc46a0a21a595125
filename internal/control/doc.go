// Package control provides the PID primitive used by each stage of the motor
// cascade.
//
// A [PID] maps a measured value and a target to a bounded output:
//
//	error  = target - measured
//	output = Kp*error + Kd*d(error)/dt + Ki*∫error dt
//
// clamped to [-bound, bound]. The integral keeps accumulating while the
// output is saturated.
//
// # Usage
//
//	pid := control.New(control.Config{Kp: 3, Kd: 0.1, Stage: control.StagePosition})
//	voltage := pid.GenerateControl(position, target, delta, 12)
//
// Every [Config] carries the [Stage] it belongs to so that a snapshot can be
// validated against the slot it was loaded into.
package control
