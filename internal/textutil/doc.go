// Package textutil provides filename sanitization helpers shared by the
// naming and placement engine.
package textutil
