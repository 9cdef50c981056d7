// Package model holds the types shared by the pipeline package and its options:
// the step descriptors that travel between steps and the option hooks invoked
// while tile jobs flow through a run.
package model
