// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pdiddy/market-edge/pkg/types"
)

// Decode checks raw backend output against s and, only if every field
// conforms, decodes it into out. Missing required fields, wrong primitive
// types, out-of-range numbers and short arrays are reported as a
// *types.SchemaValidationError; nothing is ever defaulted.
func Decode(s *Schema, raw string, out any) error {
	payload := extractJSON(raw)
	if payload == "" {
		return &types.SchemaValidationError{Schema: s.Name, Reason: "response contains no JSON object"}
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return &types.SchemaValidationError{Schema: s.Name, Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}

	normalized, err := conform(s.Name, s.Root, tree, "")
	if err != nil {
		return err
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return &types.SchemaValidationError{Schema: s.Name, Reason: fmt.Sprintf("re-encoding: %v", err)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &types.SchemaValidationError{Schema: s.Name, Reason: fmt.Sprintf("decoding into %T: %v", out, err)}
	}
	return nil
}

// conform walks v against f and returns a copy in which every integer field
// holds an integral json.Number.
func conform(schema string, f Field, v any, path string) (any, error) {
	fail := func(format string, args ...any) error {
		return &types.SchemaValidationError{Schema: schema, Path: path, Reason: fmt.Sprintf(format, args...)}
	}

	if v == nil {
		return nil, fail("expected %s, got null", f.Kind)
	}

	switch f.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fail("expected string, got %s", describe(v))
		}
		return s, nil

	case KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fail("expected boolean, got %s", describe(v))
		}
		return b, nil

	case KindInteger, KindNumber:
		n, ok := v.(json.Number)
		if !ok {
			return nil, fail("expected %s, got %s", f.Kind, describe(v))
		}
		x, err := n.Float64()
		if err != nil || math.IsInf(x, 0) || math.IsNaN(x) {
			return nil, fail("number %s out of range", n)
		}
		if f.Min != nil && x < *f.Min {
			return nil, fail("%s below minimum %g", n, *f.Min)
		}
		if f.Max != nil && x > *f.Max {
			return nil, fail("%s above maximum %g", n, *f.Max)
		}
		if f.Kind == KindNumber {
			return n, nil
		}
		if i, err := n.Int64(); err == nil {
			return json.Number(strconv.FormatInt(i, 10)), nil
		}
		if x != math.Trunc(x) || math.Abs(x) > math.MaxInt64 {
			return nil, fail("expected integer, got %s", n)
		}
		return json.Number(strconv.FormatFloat(x, 'f', 0, 64)), nil

	case KindArray:
		items, ok := v.([]any)
		if !ok {
			return nil, fail("expected array, got %s", describe(v))
		}
		if len(items) < f.MinItems {
			return nil, fail("has %d items, need at least %d", len(items), f.MinItems)
		}
		out := make([]any, len(items))
		for i, item := range items {
			c, err := conform(schema, *f.Items, item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil

	case KindObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fail("expected object, got %s", describe(v))
		}
		out := make(map[string]any, len(f.Fields))
		for _, child := range f.Fields {
			childPath := child.Name
			if path != "" {
				childPath = path + "." + child.Name
			}
			cv, present := obj[child.Name]
			if !present || cv == nil {
				if child.Optional {
					continue
				}
				return nil, &types.SchemaValidationError{Schema: schema, Path: childPath, Reason: "required field missing"}
			}
			c, err := conform(schema, child, cv, childPath)
			if err != nil {
				return nil, err
			}
			out[child.Name] = c
		}
		return out, nil
	}
	return nil, fail("unsupported kind %s", f.Kind)
}

func describe(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

// extractJSON strips Markdown code fences and any prose around the outermost
// JSON object.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}
	if strings.HasPrefix(s, "{") && json.Valid([]byte(s)) {
		return s
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
