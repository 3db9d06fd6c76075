// Package engine runs compile requests. Submit validates the document and
// returns a Result at once; a goroutine then allocates a workspace, writes
// the source, runs the configured backend, and either streams the artifact
// into the Result or turns the engine log into a single structured Error.
package engine
