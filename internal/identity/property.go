package identity

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Getter reads a property from an entity, rendered as a string.
type Getter[T any] func(entity *T) string

// Setter writes a property onto an entity. A returned error is a
// validation outcome, not a configuration problem.
type Setter[T any] func(ctx context.Context, entity *T, value string) error

// Descriptor binds one named attribute to typed get/set behavior.
// Descriptors are immutable once constructed.
type Descriptor[T any] struct {
	ptype       string
	displayName string
	dataType    DataType
	required    bool
	get         Getter[T]
	set         Setter[T]
}

// NewDescriptor binds a property type key to arbitrary getter and setter
// closures over the entity.
func NewDescriptor[T any](ptype, displayName string, dataType DataType, required bool, get Getter[T], set Setter[T]) (*Descriptor[T], error) {
	ptype = strings.TrimSpace(ptype)
	if ptype == "" {
		return nil, fmt.Errorf("identity: property type key is required")
	}
	if get == nil || set == nil {
		return nil, fmt.Errorf("identity: property %q needs both getter and setter", ptype)
	}
	if displayName == "" {
		displayName = displayNameFor(ptype)
	}
	return &Descriptor[T]{
		ptype:       ptype,
		displayName: displayName,
		dataType:    dataType,
		required:    required,
		get:         get,
		set:         set,
	}, nil
}

// FieldDescriptor derives a descriptor for one exported string field of T,
// addressed by its Go field name.
func FieldDescriptor[T any](ptype, field string, required bool) (*Descriptor[T], error) {
	var zero T
	rt := reflect.TypeOf(zero)
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("identity: %s is not a struct type", rt)
	}
	sf, ok := rt.FieldByName(field)
	if !ok || !sf.IsExported() {
		return nil, fmt.Errorf("identity: %s has no exported field %q", rt, field)
	}
	if sf.Type.Kind() != reflect.String {
		return nil, fmt.Errorf("identity: field %s.%s is not a string", rt, field)
	}
	index := sf.Index
	return NewDescriptor[T](ptype, displayNameFor(ptype), DataTypeString, required,
		func(e *T) string {
			return reflect.ValueOf(e).Elem().FieldByIndex(index).String()
		},
		func(_ context.Context, e *T, value string) error {
			reflect.ValueOf(e).Elem().FieldByIndex(index).SetString(value)
			return nil
		},
	)
}

// DescriptorsFromType derives a descriptor for every exported string field
// of T. A field tagged `admin:"-"` is skipped; any other `admin` tag value
// overrides the derived property type key. Key collisions surface here
// rather than at registration time.
func DescriptorsFromType[T any]() ([]*Descriptor[T], error) {
	var zero T
	rt := reflect.TypeOf(zero)
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("identity: %s is not a struct type", rt)
	}
	seen := make(map[string]struct{})
	var out []*Descriptor[T]
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() || sf.Type.Kind() != reflect.String {
			continue
		}
		ptype := snakeCase(sf.Name)
		if tag, ok := sf.Tag.Lookup("admin"); ok {
			if tag == "-" {
				continue
			}
			ptype = tag
		}
		if _, dup := seen[ptype]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProperty, ptype)
		}
		seen[ptype] = struct{}{}
		d, err := FieldDescriptor[T](ptype, sf.Name, false)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Type returns the unique property type key.
func (d *Descriptor[T]) Type() string { return d.ptype }

// Metadata returns the client-facing view of the descriptor.
func (d *Descriptor[T]) Metadata() PropertyMetadata {
	return PropertyMetadata{
		Type:        d.ptype,
		DisplayName: d.displayName,
		DataType:    d.dataType,
		Required:    d.required,
	}
}

// Registry holds the ordered descriptor set for one entity kind.
type Registry[T any] struct {
	ordered []*Descriptor[T]
	byType  map[string]*Descriptor[T]
}

// NewRegistry builds a registry from the given descriptors. A duplicate
// property type key is rejected eagerly.
func NewRegistry[T any](descriptors ...*Descriptor[T]) (*Registry[T], error) {
	r := &Registry[T]{byType: make(map[string]*Descriptor[T], len(descriptors))}
	for _, d := range descriptors {
		if err := r.add(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry[T]) add(d *Descriptor[T]) error {
	if d == nil {
		return fmt.Errorf("identity: nil descriptor")
	}
	if _, dup := r.byType[d.ptype]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateProperty, d.ptype)
	}
	r.byType[d.ptype] = d
	r.ordered = append(r.ordered, d)
	return nil
}

// Descriptors returns the registered descriptors in registration order.
func (r *Registry[T]) Descriptors() []*Descriptor[T] {
	return r.ordered
}

// Describe returns the client-facing metadata in registration order.
func (r *Registry[T]) Describe() []PropertyMetadata {
	out := make([]PropertyMetadata, 0, len(r.ordered))
	for _, d := range r.ordered {
		out = append(out, d.Metadata())
	}
	return out
}

// Value resolves ptype and invokes the matching getter. The second return
// is false when no descriptor carries that type key.
func (r *Registry[T]) Value(entity *T, ptype string) (string, bool) {
	d, ok := r.byType[ptype]
	if !ok {
		return "", false
	}
	return d.get(entity), true
}

// Apply resolves ptype and invokes the matching setter. found=false means
// the property type is not registered; callers treat that as a
// configuration error, distinct from a setter-reported validation failure.
func (r *Registry[T]) Apply(ctx context.Context, entity *T, ptype, value string) (found bool, err error) {
	d, ok := r.byType[ptype]
	if !ok {
		return false, nil
	}
	return true, d.set(ctx, entity, value)
}

func displayNameFor(ptype string) string {
	words := strings.Split(strings.ReplaceAll(ptype, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
