// Package watcher keeps the knowledge base in step with a folder of files.
//
// A Watcher reports file changes under a root directory, first as a full
// scan and then live through fsnotify. A Syncer applies those changes to the
// corpus: created or modified files are imported, removed files delete their
// document.
package watcher
