// Package workspace manages the scratch directories compile requests run in.
//
// A single root directory is created lazily, once per process. Every compile
// request then receives its own numbered subdirectory below that root, owned
// exclusively by the request and removed when the request finishes. The root
// itself is removed only at process shutdown.
package workspace
