// Package extractor turns uploaded documents into plain text. Each
// extractor handles a fixed set of media types; the Registry dispatches a
// document to the first extractor that supports its declared type.
package extractor
