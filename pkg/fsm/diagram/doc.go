// Package diagram renders runtime definitions as Mermaid and Graphviz DOT
// documents for documentation and review.
//
// Rendering is pure and deterministic; Export additionally writes one file
// per (definition, format) pair into a target directory. Wildcard transition
// sources render as an "any_state" pseudo node since neither dialect has a
// native wildcard.
package diagram
