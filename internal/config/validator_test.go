package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_ValidateAPIKey(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name     string
		key      string
		provider string
		wantErr  bool
	}{
		{"valid anthropic key", "sk-ant-api03-xyz", "anthropic", false},
		{"valid openai key", "sk-proj-xyz", "openai", false},
		{"empty key", "", "anthropic", true},
		{"anthropic key without prefix", "api-key-xyz", "anthropic", true},
		{"openai key without prefix", "key-xyz", "openai", true},
		{"unknown provider accepts any non-empty key", "whatever", "custom", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateAPIKey(tt.key, tt.provider)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_ValidateTemperature(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateTemperature(0))
	assert.NoError(t, v.ValidateTemperature(0.7))
	assert.NoError(t, v.ValidateTemperature(1))
	assert.Error(t, v.ValidateTemperature(-0.1))
	assert.Error(t, v.ValidateTemperature(1.1))
}

func TestValidator_ValidateMediaType(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateMediaType("image/png"))
	assert.Error(t, v.ValidateMediaType("text/plain"))
	assert.Error(t, v.ValidateMediaType("image/*"))
}
