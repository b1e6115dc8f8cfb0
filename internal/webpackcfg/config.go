// Package webpackcfg models a webpack configuration object and renders it
// as a CommonJS module, rewriting properties the declared webpack version
// does not understand.
package webpackcfg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/unistring"

	"github.com/calmjs/calmjs-webpack/internal/jsast"
)

// TargetKey holds the declared webpack version. It is a marker entry and
// never appears in the generated module.
const TargetKey = "__webpack_target__"

// Converter normalizes a value stored under a special key.
type Converter func(value interface{}) (interface{}, error)

// Special describes a key handled outside the JSON encoding path. A marker
// special is kept in the configuration but never emitted.
type Special struct {
	Convert Converter
	Marker  bool
}

var (
	// Identity is the marker special; values are stored unchanged.
	Identity = Special{Marker: true}

	// Code stores values as a CodeSequence.
	Code = Special{Convert: toCodeSequence}
)

// Exporter is implemented by special values that render as JavaScript.
type Exporter interface {
	Export() ast.Expression
}

// DefaultSpecials is the special key table used by New.
func DefaultSpecials() map[string]Special {
	return map[string]Special{
		"plugins": Code,
		TargetKey: Identity,
	}
}

// Config is a webpack configuration. Plain entries must be encodable as JSON.
type Config struct {
	values   map[string]interface{}
	specials map[string]Special
}

func New() *Config {
	return NewWithSpecials(DefaultSpecials())
}

func NewWithSpecials(specials map[string]Special) *Config {
	return &Config{
		values:   make(map[string]interface{}),
		specials: specials,
	}
}

// Set stores value under key, converting it when key is special.
func (c *Config) Set(key string, value interface{}) error {
	if sp, ok := c.specials[key]; ok && sp.Convert != nil {
		converted, err := sp.Convert(value)
		if err != nil {
			return fmt.Errorf("invalid value for %q: %w", key, err)
		}
		value = converted
	}
	c.values[key] = value
	return nil
}

func (c *Config) Get(key string) (interface{}, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *Config) Delete(key string) {
	delete(c.values, key)
}

func (c *Config) Len() int {
	return len(c.values)
}

// Keys returns all keys in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Plugins returns the plugin sequence, creating an empty one if needed.
func (c *Config) Plugins() *CodeSequence {
	if seq, ok := c.values["plugins"].(*CodeSequence); ok {
		return seq
	}
	seq := NewCodeSequence()
	c.values["plugins"] = seq
	return seq
}

// Target returns the declared webpack version, or Latest when none is set.
func (c *Config) Target() (Version, error) {
	switch v := c.values[TargetKey].(type) {
	case nil:
		return Latest, nil
	case Version:
		if v.IsZero() {
			return Latest, nil
		}
		return v, nil
	case string:
		return ParseVersion(v)
	default:
		return Version{}, fmt.Errorf("invalid %s value of type %T", TargetKey, v)
	}
}

// Plain returns a copy of the entries that are encoded as JSON.
func (c *Config) Plain() map[string]interface{} {
	plain := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		if _, special := c.specials[k]; !special {
			plain[k] = v
		}
	}
	return plain
}

// Object builds the configuration object literal. Plain entries come first
// in key order, specials follow in key order, then the version rewrite is
// applied.
func (c *Config) Object() (*ast.ObjectLiteral, error) {
	encoded, err := encodeJSON(c.Plain())
	if err != nil {
		return nil, fmt.Errorf("failed to encode webpack config: %w", err)
	}
	expr, err := jsast.ParseExpression(encoded)
	if err != nil {
		return nil, err
	}
	obj, ok := expr.(*ast.ObjectLiteral)
	if !ok {
		return nil, fmt.Errorf("webpack config encoded to %T", expr)
	}

	var specialKeys []string
	for k, sp := range c.specials {
		if !sp.Marker {
			specialKeys = append(specialKeys, k)
		}
	}
	sort.Strings(specialKeys)
	for _, k := range specialKeys {
		v, ok := c.values[k]
		if !ok || v == nil {
			continue
		}
		exp, ok := v.(Exporter)
		if !ok {
			return nil, fmt.Errorf("special key %q holds unexportable %T", k, v)
		}
		obj.Value = append(obj.Value, keyed(k, exp.Export()))
	}

	target, err := c.Target()
	if err != nil {
		return nil, err
	}
	return Rewrite(obj, target), nil
}

const moduleTemplate = `'use strict';

var webpack = require('webpack');

var webpackConfig = {};

module.exports = webpackConfig;
`

// Module renders the configuration as the text of a CommonJS module.
func (c *Config) Module() (string, error) {
	obj, err := c.Object()
	if err != nil {
		return "", err
	}
	src, err := jsast.Parse("webpack.config.js", moduleTemplate)
	if err != nil {
		return "", err
	}
	placeholder, err := jsast.Extract(src.Program, jsast.OfType[*ast.ObjectLiteral](), 0)
	if err != nil {
		return "", fmt.Errorf("config template has no placeholder: %w", err)
	}
	src.Replace(map[ast.Node]ast.Node{placeholder: obj})
	return src.Serialize()
}

func encodeJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(buf.Bytes())), nil
}

func keyed(key string, value ast.Expression) *ast.PropertyKeyed {
	return &ast.PropertyKeyed{
		Key:   &ast.StringLiteral{Literal: jsast.QuoteString(key), Value: unistring.NewFromString(key)},
		Kind:  ast.PropertyKindValue,
		Value: value,
	}
}
