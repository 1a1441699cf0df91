// Package workspace manages the scratch directory that holds normalized
// audio while an asset is being transcribed.
//
// A Workspace records whether the directory was created by the current run.
// Release reads that flag: directories that already existed are left in
// place, directories this run created are removed. Individual scratch files
// are removed with Remove regardless of who owns the directory.
package workspace
