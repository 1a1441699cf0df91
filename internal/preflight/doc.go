// Package preflight provides readiness checks for the filesystem paths and
// external binaries captionsync depends on.
//
// The CLI "check" command prints every result; "transcribe" runs RunAll
// before touching any asset and refuses to start when a check fails.
package preflight
