// Package formats provides parsers and encoders for the KMX skeleton and
// skinned mesh asset formats.
//
// Both formats are little-endian with 4-byte natural alignment. Every offset
// stored in a file is relative to the first byte after its fixed-size header.
// Parsed assets keep the original buffer and decode records on access through
// bounds-checked views; all ranges are validated once at parse time.
package formats
