package validation

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		value string
		valid bool
	}{
		{"required ok", Required(), "ship v1", true},
		{"required blank", Required(), "   ", false},
		{"max ok", MaxLength(5), "héllo", true},
		{"max too long", MaxLength(4), "hello", false},
		{"one of ok", OneOf("a", "b"), "b", true},
		{"one of bad", OneOf("a", "b"), "c", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.rule.Validate(tt.value)
			assert.Equal(t, tt.valid, res.IsValid)
			if !tt.valid {
				assert.NotEmpty(t, res.Errors)
			}
		})
	}
}

func TestCheckCollectsAllFields(t *testing.T) {
	err := Check(
		F("title", "", Required(), MaxLength(10)),
		F("note", strings.Repeat("x", 11), MaxLength(10)),
		F("description", "fine", MaxLength(10)),
	)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	var fieldErrs Errors
	require.True(t, stderrors.As(err, &fieldErrs))
	require.Len(t, fieldErrs, 2)
	assert.Equal(t, "title", fieldErrs[0].Field)
	assert.Equal(t, "note", fieldErrs[1].Field)
	assert.Contains(t, err.Error(), "title is required")
}

func TestCheckPasses(t *testing.T) {
	assert.NoError(t, Check(F("title", "ok", Required())))
}
