package contract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptConfirmation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"yes with newline", "yes\n", "yes", false},
		{"trailing space", "  y  \n", "y", false},
		{"no newline", "n", "n", false},
		{"only first line", "no\nyes\n", "no", false},
		{"empty input", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			src := &PromptConfirmation{In: strings.NewReader(tt.input), Out: &out}

			got, err := src.Confirm("continue? ")
			assert.Equal(t, "continue? ", out.String())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStaticConfirmation(t *testing.T) {
	got, err := StaticConfirmation("no").Confirm("anything")
	require.NoError(t, err)
	assert.Equal(t, "no", got)
}
