// Package render turns resolution results into human- and
// machine-readable output: an ANSI-styled dependency tree for the
// terminal, a flat conflict report, and Graphviz DOT with SVG/PNG
// conversion for sharing.
package render
