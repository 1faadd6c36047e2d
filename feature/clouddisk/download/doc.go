// Package download fetches a cloud-only file's content from the object
// store and hands it to the handler, which moves it into place and marks
// the row as cached.
package download
