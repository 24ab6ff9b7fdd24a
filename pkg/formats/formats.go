// Package formats provides parsers for Ragnarok Online map formats used as
// navigation terrain sources.
package formats
