// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Kind is the primitive type of a schema field.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Field describes one value inside a schema. Arrays carry their element in
// Items; objects carry their members in Fields, in declaration order.
type Field struct {
	Name        string
	Kind        Kind
	Description string
	Optional    bool
	Min         *float64
	Max         *float64
	MinItems    int
	Items       *Field
	Fields      []Field
}

// Schema is a named record shape a generative call may be asked to conform to.
type Schema struct {
	Name string
	Root Field
}

// Registry maps schema names and Go types to declared schemas. It is safe
// for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Schema
	byType map[reflect.Type]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Schema),
		byType: make(map[reflect.Type]*Schema),
	}
}

// Register declares a schema for the struct type T under name.
func Register[T any](r *Registry, name string) (*Schema, error) {
	return r.register(name, reflect.TypeFor[T]())
}

// MustRegister is Register for package initialisation; it panics on a type
// that cannot be expressed as a schema.
func MustRegister[T any](r *Registry, name string) *Schema {
	s, err := Register[T](r, name)
	if err != nil {
		panic(err)
	}
	return s
}

func (r *Registry) register(name string, t reflect.Type) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("registering %v: schema name is empty", t)
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("registering %s: %v is not a struct", name, t)
	}
	root, err := fieldFor(t, "")
	if err != nil {
		return nil, fmt.Errorf("registering %s: %w", name, err)
	}
	s := &Schema{Name: name, Root: root}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[name]; ok {
		if r.byType[t] == existing {
			return existing, nil
		}
		return nil, fmt.Errorf("registering %s: name already bound to another type", name)
	}
	r.byName[name] = s
	r.byType[t] = s
	return s, nil
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// ForType returns the schema registered for t.
func (r *Registry) ForType(t reflect.Type) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byType[t]
	return s, ok
}

// Names lists the registered schema names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// fieldFor derives a Field from a Go type. Struct members are named by their
// json tag; the schema tag carries "optional", "min=", "max=" and
// "minItems="; the desc tag carries the description.
func fieldFor(t reflect.Type, name string) (Field, error) {
	f := Field{Name: name}
	switch t.Kind() {
	case reflect.String:
		f.Kind = KindString
	case reflect.Bool:
		f.Kind = KindBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f.Kind = KindInteger
	case reflect.Float32, reflect.Float64:
		f.Kind = KindNumber
	case reflect.Slice, reflect.Array:
		f.Kind = KindArray
		item, err := fieldFor(t.Elem(), "")
		if err != nil {
			return Field{}, err
		}
		f.Items = &item
	case reflect.Struct:
		f.Kind = KindObject
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			jsonName := strings.Split(sf.Tag.Get("json"), ",")[0]
			if jsonName == "-" {
				continue
			}
			if jsonName == "" {
				jsonName = sf.Name
			}
			child, err := fieldFor(sf.Type, jsonName)
			if err != nil {
				return Field{}, fmt.Errorf("%s.%s: %w", t.Name(), sf.Name, err)
			}
			child.Description = sf.Tag.Get("desc")
			if err := applyTag(&child, sf.Tag.Get("schema")); err != nil {
				return Field{}, fmt.Errorf("%s.%s: %w", t.Name(), sf.Name, err)
			}
			f.Fields = append(f.Fields, child)
		}
	case reflect.Pointer:
		inner, err := fieldFor(t.Elem(), name)
		if err != nil {
			return Field{}, err
		}
		inner.Optional = true
		return inner, nil
	default:
		return Field{}, fmt.Errorf("unsupported kind %s", t.Kind())
	}
	return f, nil
}

func applyTag(f *Field, tag string) error {
	if tag == "" {
		return nil
	}
	for _, part := range strings.Split(tag, ",") {
		key, val, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch key {
		case "optional":
			f.Optional = true
		case "min", "max":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("bad %s bound %q", key, val)
			}
			if key == "min" {
				f.Min = &v
			} else {
				f.Max = &v
			}
		case "minItems":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return fmt.Errorf("bad minItems %q", val)
			}
			f.MinItems = n
		default:
			return fmt.Errorf("unknown schema option %q", key)
		}
	}
	return nil
}

// JSONSchema renders the schema as a JSON Schema document for backends that
// take the shape as part of the prompt.
func (s *Schema) JSONSchema() map[string]any {
	return jsonSchemaFor(s.Root)
}

func jsonSchemaFor(f Field) map[string]any {
	out := map[string]any{"type": string(f.Kind)}
	if f.Description != "" {
		out["description"] = f.Description
	}
	if f.Min != nil {
		out["minimum"] = *f.Min
	}
	if f.Max != nil {
		out["maximum"] = *f.Max
	}
	switch f.Kind {
	case KindArray:
		if f.MinItems > 0 {
			out["minItems"] = f.MinItems
		}
		if f.Items != nil {
			out["items"] = jsonSchemaFor(*f.Items)
		}
	case KindObject:
		props := make(map[string]any, len(f.Fields))
		required := make([]string, 0, len(f.Fields))
		for _, c := range f.Fields {
			props[c.Name] = jsonSchemaFor(c)
			if !c.Optional {
				required = append(required, c.Name)
			}
		}
		out["properties"] = props
		out["required"] = required
		out["additionalProperties"] = false
	}
	return out
}
