package mediacontent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrAssetNotFound indicates an asset was not found
	ErrAssetNotFound = errors.New("asset not found")

	// ErrCouldNotSave indicates a relation or asset could not be written
	ErrCouldNotSave = errors.New("could not save")

	// ErrCouldNotDelete indicates a relation could not be removed
	ErrCouldNotDelete = errors.New("could not delete")

	// ErrExtractionFailed indicates asset references could not be extracted from content
	ErrExtractionFailed = errors.New("asset extraction failed")

	// ErrInvalidContentType indicates a content type with no registered fields
	ErrInvalidContentType = errors.New("invalid content type")

	// ErrIntegration indicates the relation between assets and content could not be processed
	ErrIntegration = errors.New("an error occurred at processing relation between media asset and content")

	// ErrSyncFailed indicates at least one file failed during a media synchronization run
	ErrSyncFailed = errors.New("could not synchronize assets")
)

// RelationError represents a failed assign or unassign
type RelationError struct {
	Op       string
	AssetID  uuid.UUID
	Identity ContentIdentity
	Err      error
}

func (e *RelationError) Error() string {
	return fmt.Sprintf("relation operation %s failed for asset %s on %s/%s/%s: %v",
		e.Op, e.AssetID, e.Identity.Type, e.Identity.EntityID, e.Identity.Field, e.Err)
}

func (e *RelationError) Unwrap() error {
	return e.Err
}

// ExtractionError represents a failure to extract assets from a field's content
type ExtractionError struct {
	Identity ContentIdentity
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting assets from %s/%s/%s: %v",
		e.Identity.Type, e.Identity.EntityID, e.Identity.Field, e.Err)
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtractionFailed
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IntegrationError is returned by the Reconciler when any field of an entity
// could not be processed. The root cause is logged and kept in Err.
type IntegrationError struct {
	ContentType ContentType
	EntityID    string
	Err         error
}

func (e *IntegrationError) Error() string {
	return ErrIntegration.Error()
}

// Is reports ErrIntegration as a match so callers can test with errors.Is.
func (e *IntegrationError) Is(target error) bool {
	return target == ErrIntegration
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

// SyncFailure records one file that a synchronizer could not process.
type SyncFailure struct {
	Path         string
	Synchronizer string
	Err          error
}

// SyncRunError is returned after a synchronization run in which at least one
// file failed. It lists every failed path.
type SyncRunError struct {
	Failures []SyncFailure
}

// Paths returns the failed paths in the order they were recorded.
func (e *SyncRunError) Paths() []string {
	paths := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		paths = append(paths, f.Path)
	}
	return paths
}

func (e *SyncRunError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSyncFailed.Error(), strings.Join(e.Paths(), ", "))
}

func (e *SyncRunError) Is(target error) bool {
	return target == ErrSyncFailed
}

// Unwrap exposes the individual failure causes.
func (e *SyncRunError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}
