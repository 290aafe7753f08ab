// Package template resolves ${...} placeholders in configuration strings
// using HCL template syntax.
package template
