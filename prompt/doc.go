// Package prompt loads and renders the prompt templates used by the
// extraction and inference calls.
//
// Templates are plain text files resolved by name: search directories
// (project-local overrides) are consulted first, then the embedded
// defaults shipped with the binary. Rendering goes through
// text/template, so overrides can interpolate variables the caller
// passes in.
package prompt
