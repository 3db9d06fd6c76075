// Package backend runs the external typesetting engine. It defines the
// Backend interface the compile engine drives, the process-based
// implementation that spawns pdflatex/latex, the rules for choosing the
// executable, and a registry of named backends.
package backend
