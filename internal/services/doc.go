// Package services provides shared error classification and context helpers
// used by the pipeline stages and the external-service clients.
package services
