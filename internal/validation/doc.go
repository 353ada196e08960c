// Package validation computes which template variables a form shows, which
// it requires and which fail format checks, given the current values and
// the network toggles.
//
// Evaluation is a pure function of its inputs. Whether errors are shown
// before the first submit is left to the caller.
package validation
