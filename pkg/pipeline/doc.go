// Package pipeline runs tile jobs through a series of steps connected by channels.
//
// A run starts from a root step that emits jobs (one per grid coordinate), goes
// through steps that may consume their input with a bounded number of
// goroutines, and ends in a sink. Steps start as soon as they are added and
// Run waits for all of them.
//
// The first error returned by any step cancels the pipeline context, so the
// other steps stop pulling work and Run returns that error. Steps that need to
// keep going after a per-item failure must carry the failure in their output
// value instead of returning it.
package pipeline
