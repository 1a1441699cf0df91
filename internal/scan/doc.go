// Package scan discovers media assets that need transcription.
//
// Walk visits a directory tree depth-first using an explicit worklist and
// yields supported assets lazily in directory-listing order. Each asset
// reports whether its sibling caption artifact already exists; that flag is
// the only signal the pipeline uses to skip work.
package scan
