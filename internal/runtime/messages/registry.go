package messages

import (
	"fmt"
	"reflect"
	"slices"
)

// DecodeFunc rebuilds a variant from its payload bytes (the envelope minus the tag).
type DecodeFunc func(payload []byte) (Message, error)

// Entry describes one catalog variant.
type Entry struct {
	Tag    Tag
	Name   string
	Fields []string
	Decode DecodeFunc
}

// Direction is shorthand for e.Tag.Direction().
func (e Entry) Direction() Direction {
	return e.Tag.Direction()
}

type variantPtr[T any] interface {
	*T
	Message
}

// Variant derives the registry entry for the variant type T: its tag, its
// name, the required payload fields from the json struct tags and a decoder
// producing *T.
func Variant[T any, PT variantPtr[T]]() Entry {
	var zero T
	typ := reflect.TypeOf(zero)
	fields := fieldNames(typ)

	return Entry{
		Tag:    PT(&zero).Tag(),
		Name:   typ.Name(),
		Fields: fields,
		Decode: func(payload []byte) (Message, error) {
			msg := PT(new(T))
			if err := decodeFields(payload, fields, msg); err != nil {
				return nil, err
			}
			if v, ok := any(msg).(Validator); ok {
				if err := v.Validate(); err != nil {
					return nil, err
				}
			}
			return msg, nil
		},
	}
}

// Registry maps tags to their catalog entries. It is immutable once built and
// safe for concurrent use.
type Registry struct {
	entries map[Tag]Entry
	tags    []Tag
}

// NewRegistry builds a registry from entries. Two entries sharing a tag, or an
// entry without a decoder, is an error.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make(map[Tag]Entry, len(entries)),
		tags:    make([]Tag, 0, len(entries)),
	}
	for _, entry := range entries {
		if entry.Decode == nil {
			return nil, fmt.Errorf("matchwire: entry %s (%s) has no decoder", entry.Tag, entry.Name)
		}
		if existing, ok := r.entries[entry.Tag]; ok {
			return nil, &DuplicateTagError{Tag: entry.Tag, First: existing.Name, Other: entry.Name}
		}
		entry.Fields = slices.Clone(entry.Fields)
		r.entries[entry.Tag] = entry
		r.tags = append(r.tags, entry.Tag)
	}
	slices.Sort(r.tags)
	return r, nil
}

// MustNewRegistry is NewRegistry for package initialization: it panics on a
// duplicate tag so the defect surfaces at process start.
func MustNewRegistry(entries ...Entry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the entry registered for tag.
func (r *Registry) Lookup(tag Tag) (Entry, bool) {
	entry, ok := r.entries[tag]
	if !ok {
		return Entry{}, false
	}
	entry.Fields = slices.Clone(entry.Fields)
	return entry, true
}

// Tags returns every registered tag in ascending order.
func (r *Registry) Tags() []Tag {
	return slices.Clone(r.tags)
}

// Name returns the variant name registered for tag, or "".
func (r *Registry) Name(tag Tag) string {
	return r.entries[tag].Name
}

func (r *Registry) Len() int {
	return len(r.tags)
}
