// Package inference provides the optional model-assisted extraction path
// and the availability controller that gates it.
//
// The extractor runs a local ONNX token-classification pipeline that
// labels utterance spans with clause roles (TRIGGER, CONDITION, ACTION).
// Labelled spans are parsed by the shared phrase grammar, so the model
// path emits the same clause shapes as the rule-based path and the two
// never mix within a request. The pipeline runs under a hard timeout and
// every failure is reported to the controller.
//
// The controller is a small state machine:
//
//	Unknown --first outcome--> Available <--> Unavailable
//	Disabled (configuration override, terminal)
//
// Probing is opportunistic: real requests double as probes, so there is no
// dedicated probe timer and no request ever blocks waiting for one. After
// a failure the model path rests for a cooldown before the next attempt.
package inference
