// Package source holds the manual sources that sync jobs reconcile with
// the section index.
//
// Each subpackage implements driven.ManualSource:
//   - filesystem: a local directory of PDFs, with an fsnotify watcher
//   - gdrive: a Google Drive folder read with a service account
package source
