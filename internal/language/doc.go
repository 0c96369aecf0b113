// Package language normalizes language names and ISO 639 codes returned by
// the inference model into the display names used in library filenames.
package language
