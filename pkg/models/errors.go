package models

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

/* StorageError */

var ErrStorage = errors.New("storage error")

type StorageError struct {
	Message       string
	OriginalError error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s (original error: %v)", e.Message, e.OriginalError)
}

func (e *StorageError) Unwrap() error {
	return ErrStorage
}

func NewStorageError(message string, originalError error) *StorageError {
	return &StorageError{Message: message, OriginalError: originalError}
}

/* DimensionMismatchError */

var ErrDimensionMismatch = errors.New("embedding width mismatch")

// DimensionMismatchError is raised when two embeddings of different widths
// are compared. Candidates carrying a mismatched embedding are skipped with
// a logged warning; the error never aborts a whole search.
type DimensionMismatchError struct {
	LenA int
	LenB int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding width mismatch: %d != %d", e.LenA, e.LenB)
}

func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}

func NewDimensionMismatchError(lenA, lenB int) *DimensionMismatchError {
	return &DimensionMismatchError{LenA: lenA, LenB: lenB}
}

/* EmbeddingError */

var ErrEmbedding = errors.New("embedding unavailable")

// EmbeddingError is fatal for a retrieval call: without a query vector no
// ranking is possible. It is surfaced as a structured failure result.
type EmbeddingError struct {
	Message       string
	OriginalError error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding error: %s (original error: %v)", e.Message, e.OriginalError)
}

func (e *EmbeddingError) Unwrap() error {
	return ErrEmbedding
}

func NewEmbeddingError(message string, originalError error) *EmbeddingError {
	return &EmbeddingError{Message: message, OriginalError: originalError}
}

/* ClassifierError */

var ErrClassifierUnavailable = errors.New("classifier unavailable")

// ClassifierError marks a failed, timed out, or malformed LLM
// classification. Always recovered locally via the deterministic fallback
// rules; never surfaced to a caller.
type ClassifierError struct {
	Message       string
	OriginalError error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier error: %s (original error: %v)", e.Message, e.OriginalError)
}

func (e *ClassifierError) Unwrap() error {
	return ErrClassifierUnavailable
}

func NewClassifierError(message string, originalError error) *ClassifierError {
	return &ClassifierError{Message: message, OriginalError: originalError}
}
