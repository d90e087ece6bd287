// Package fastembed provides an in-process embedding service backed by
// ONNX models through fastembed-go.
//
// The adapter requires cgo. Builds without cgo get a stub whose
// constructor returns ErrNotAvailable.
package fastembed
