// Command bindery classifies book files with a local LLM and reorganizes
// them into an author-first library tree.
package main
