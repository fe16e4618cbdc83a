// Package mmap maps anonymous, private, read-write memory outside the Go heap.
//
// Mappings are page aligned and zero filled. They are invisible to the
// garbage collector: nothing stored in them keeps a Go object alive, and they
// are only returned to the operating system by Release.
package mmap
