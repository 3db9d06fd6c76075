// Package texlog turns a TeX engine log into a structured trace of the
// errors it reports.
//
// Parsing is split into three steps that can each be tested without I/O:
// ReadLines splits a log into its non-empty lines, Classify tags each line,
// and Scan runs a two-state machine (Idle, PendingMessage) over the tagged
// lines, pairing every "!" diagnostic with the "l.<N>" line that locates it.
package texlog
