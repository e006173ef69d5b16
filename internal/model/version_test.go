package model

import "testing"

import "github.com/stretchr/testify/assert"

func TestIsVersionRange(t *testing.T) {
	assert.True(t, IsVersionRange("[1.0,2.0)"))
	assert.True(t, IsVersionRange("(,1.0]"))
	assert.False(t, IsVersionRange("1.2.3"))
	assert.False(t, IsVersionRange("${revision}"))
}

func TestIsLiteralConstant(t *testing.T) {
	assert.True(t, IsLiteralConstant("1.2.3"))
	assert.False(t, IsLiteralConstant("${revision}"))
}

func TestVersionRangeContains(t *testing.T) {
	rng, err := ParseVersionRange("[1.0,2.0)")
	assert.NoError(t, err)
	assert.True(t, rng.Contains("1.5.0"))
	assert.False(t, rng.Contains("2.0.0"))
	assert.False(t, rng.Contains("not-a-version"))
}

func TestParseVersionRangeInvalid(t *testing.T) {
	_, err := ParseVersionRange("[not valid")
	assert.Error(t, err)
}
