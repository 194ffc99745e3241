package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactor_Redact(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "anthropic api key",
			input: "using key sk-ant-REDACTED now",
			want:  "using key [REDACTED] now",
		},
		{
			name:  "openai api key",
			input: "key=sk-proj-abcdefghijklmnopqrstuvwxyz",
			want:  "key=[REDACTED]",
		},
		{
			name:  "bearer token",
			input: "Authorization: Bearer abc.def.ghi",
			want:  "Authorization: [REDACTED]",
		},
		{
			name:  "base64 image payload",
			input: "prompt data:image/png;base64," + strings.Repeat("QUJD", 32) + " end",
			want:  "prompt [REDACTED] end",
		},
		{
			name:  "plain text untouched",
			input: "extracted 4 ingredients from label",
			want:  "extracted 4 ingredients from label",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Redact(tt.input))
		})
	}
}

func TestRedactor_AddPattern(t *testing.T) {
	r := NewRedactor()

	require.NoError(t, r.AddPattern(`session-[0-9a-f]{8}`))
	assert.Equal(t, "id [REDACTED]", r.Redact("id session-deadbeef"))

	assert.Error(t, r.AddPattern(`[unclosed`))
}

func TestRedactor_Wrap(t *testing.T) {
	r := NewRedactor()
	var buf bytes.Buffer

	w := r.Wrap(&buf)
	msg := "key sk-ant-REDACTED"
	n, err := w.Write([]byte(msg))
	require.NoError(t, err)
	assert.Equal(t, len(msg), n)
	assert.Equal(t, "key [REDACTED]", buf.String())
}
