package mediacontent

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Entity is a saved content entity as seen by a Dispatcher.
type Entity interface {
	// ID returns the entity identifier
	ID() string

	// DataHasChangedFor reports whether the field changed in this save
	DataHasChangedFor(field string) bool

	// Data returns the current field value, nil when the field is empty
	Data(field string) *string
}

// ContentProcessor is what a Dispatcher forwards changed fields to.
// *Reconciler implements it.
type ContentProcessor interface {
	Execute(ctx context.Context, entityID string, snapshot ContentSnapshot, contentType ContentType) error
}

// Dispatcher turns entity saves into Reconciler calls. Each content type is
// registered with the fields it watches; saves are passed in explicitly by
// the entity-save code path.
type Dispatcher struct {
	processor ContentProcessor
	fields    map[ContentType][]string
}

// NewDispatcher creates a Dispatcher forwarding to processor
func NewDispatcher(processor ContentProcessor) *Dispatcher {
	return &Dispatcher{
		processor: processor,
		fields:    make(map[ContentType][]string),
	}
}

// Register adds a field watcher for a content type. Registering a type again
// appends to its field list.
func (d *Dispatcher) Register(contentType ContentType, fields ...string) *Dispatcher {
	for _, field := range fields {
		if !containsString(d.fields[contentType], field) {
			d.fields[contentType] = append(d.fields[contentType], field)
		}
	}
	return d
}

// Fields returns the fields watched for a content type
func (d *Dispatcher) Fields(contentType ContentType) []string {
	return append([]string(nil), d.fields[contentType]...)
}

// ContentTypes returns all registered content types in sorted order
func (d *Dispatcher) ContentTypes() []ContentType {
	return slices.Sorted(maps.Keys(d.fields))
}

// OnSave collects the watched fields that changed on entity and runs the
// processor for them. Nothing happens when no watched field changed.
func (d *Dispatcher) OnSave(ctx context.Context, contentType ContentType, entity Entity) error {
	fields, ok := d.fields[contentType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}

	snapshot := make(ContentSnapshot)
	for _, field := range fields {
		if entity.DataHasChangedFor(field) {
			snapshot[field] = entity.Data(field)
		}
	}
	if len(snapshot) == 0 {
		return nil
	}

	return d.processor.Execute(ctx, entity.ID(), snapshot, contentType)
}

// ChangeSet is an Entity built from the field values before and after a save.
// A field is changed when its value differs between the two maps; a field
// missing from Current is unchanged.
type ChangeSet struct {
	EntityID string
	Original map[string]*string
	Current  map[string]*string
}

// ID returns the entity identifier
func (c *ChangeSet) ID() string {
	return c.EntityID
}

// DataHasChangedFor reports whether field differs between Original and Current
func (c *ChangeSet) DataHasChangedFor(field string) bool {
	current, ok := c.Current[field]
	if !ok {
		return false
	}
	original := c.Original[field]
	switch {
	case original == nil && current == nil:
		return false
	case original == nil || current == nil:
		return true
	default:
		return *original != *current
	}
}

// Data returns the current value of field
func (c *ChangeSet) Data(field string) *string {
	return c.Current[field]
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
