package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_KnownFields(t *testing.T) {
	raw, err := ParseYAML([]byte(`
title: "  Getting Started "
description: Intro page
weight: 3
tags: [setup, basics]
date: 2024-03-01
draft: true
hidden: "true"
slug: /custom/path/
author: jane
`))
	require.NoError(t, err)

	f := Decode(raw)
	assert.Equal(t, "Getting Started", f.Title)
	assert.Equal(t, "Intro page", f.Description)
	require.NotNil(t, f.Order)
	assert.Equal(t, 3.0, *f.Order)
	assert.Equal(t, []string{"setup", "basics"}, f.Tags)
	assert.Equal(t, "2024-03-01", f.Date)
	assert.True(t, f.Draft)
	assert.True(t, f.Hidden)
	assert.Equal(t, "custom/path", f.Slug)
	assert.Equal(t, map[string]any{"author": "jane"}, f.Extra)
}

func TestDecode_OrderPrecedenceAndCommaTags(t *testing.T) {
	f := Decode(map[string]any{
		"order":            "1.5",
		"sidebar_position": 9,
		"tags":             "a, b,,c",
	})
	require.NotNil(t, f.Order)
	assert.Equal(t, 1.5, *f.Order)
	assert.Equal(t, []string{"a", "b", "c"}, f.Tags)
	assert.Nil(t, f.Extra)
}

func TestDecode_NonFiniteNumbers(t *testing.T) {
	raw, err := ParseYAML([]byte("order: .inf\nratio: .nan\nlimits: [1.5, -.inf]\n"))
	require.NoError(t, err)

	f := Decode(raw)
	assert.Nil(t, f.Order)
	assert.Equal(t, "NaN", f.Extra["ratio"])
	assert.Equal(t, []any{1.5, "-Inf"}, f.Extra["limits"])

	f = Decode(map[string]any{"weight": "Infinity"})
	assert.Nil(t, f.Order)
}

func TestDecode_Empty(t *testing.T) {
	f := Decode(map[string]any{})
	assert.Nil(t, f.Order)
	assert.Empty(t, f.Title)
	assert.False(t, f.Draft)
}

func TestFingerprint_IgnoresVolatileKeysAndOrder(t *testing.T) {
	body := []byte("# Hello\n")

	a, err := Fingerprint(map[string]any{"title": "A", "tags": []any{"x"}}, body)
	require.NoError(t, err)
	b, err := Fingerprint(map[string]any{"tags": []any{"x"}, "title": "A", "lastmod": "2024-01-01", "uid": "u1"}, body)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Fingerprint(map[string]any{"title": "B", "tags": []any{"x"}}, body)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	d, err := Fingerprint(map[string]any{"title": "A", "tags": []any{"x"}}, []byte("# Changed\n"))
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}
