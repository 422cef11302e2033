// Package errors provides classified error primitives used across docbundle.
//
// A ClassifiedError carries a category (config, filesystem, render, ...), a
// severity, a retry strategy and structured context. Adapters translate them
// into CLI exit codes and HTTP responses.
//
//	err := errors.NewError(errors.CategoryRender, "render failed").
//		WithContext("path", rel).
//		WithCause(cause).
//		Build()
package errors
