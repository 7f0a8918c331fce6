// Package loaders provides implementations of the Loader interface for the
// document formats docchat ingests. Each loader knows how to extract text
// segments from a specific media type.
//
// Loaders are registered with a Registry at startup; Default returns one
// with every built-in loader.
package loaders
