// Package extract turns book files into bounded text snippets for LLM
// context. Dispatch is by file extension through a reader registry; built-in
// readers cover plain text, FB2/OPF, HTML, EPUB, DOCX, and PDF. Snippets are
// capped by both a word budget and a hard character ceiling, whichever is
// reached first.
package extract
