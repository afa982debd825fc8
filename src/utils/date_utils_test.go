package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "already canonical", input: "2024-01-16", want: "2024-01-16"},
		{name: "robinhood short", input: "1/16/2024", want: "2024-01-16"},
		{name: "robinhood padded", input: "01/16/2024", want: "2024-01-16"},
		{name: "slash iso", input: "2024/01/16", want: "2024-01-16"},
		{name: "garbage", input: "yesterday", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
