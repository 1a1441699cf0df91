// Package watch notifies callers when a single file changes on disk.
//
// Subscribe watches the file's parent directory with fsnotify so that atomic
// replace-by-rename, creation and removal of the file are all observed. Bursts
// of events are debounced into one callback. Unsubscribe stops the watcher;
// once it returns no further callback starts.
package watch
