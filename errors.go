package regsage

import "errors"

var (
	// ErrInvalidRequest is returned when a query or ingest request fails validation.
	ErrInvalidRequest = errors.New("regsage: invalid request")

	// ErrDocumentNotFound is returned when a document ID does not exist.
	ErrDocumentNotFound = errors.New("regsage: document not found")

	// ErrConversationNotFound is returned when a conversation ID does not exist.
	ErrConversationNotFound = errors.New("regsage: conversation not found")

	// ErrUnknownJurisdiction is returned when no configured agent covers a
	// requested jurisdiction.
	ErrUnknownJurisdiction = errors.New("regsage: unknown jurisdiction")

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = errors.New("regsage: embedding generation failed")

	// ErrGenerationFailed is returned when a text generation request fails.
	ErrGenerationFailed = errors.New("regsage: generation request failed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("regsage: invalid configuration")
)
