package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []DBOrdering
	}{
		{name: "empty", in: "", want: nil},
		{name: "ascending", in: "submitted_at", want: []DBOrdering{{Field: "submitted_at", Ascending: true}}},
		{
			name: "mixed",
			in:   " -submitted_at , applicant_name,,-",
			want: []DBOrdering{
				{Field: "submitted_at", Ascending: false},
				{Field: "applicant_name", Ascending: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrdering(tt.in))
		})
	}
}

func TestDBOrdering_String(t *testing.T) {
	assert.Equal(t, "status ASC", DBOrdering{Field: "status", Ascending: true}.String())
	assert.Equal(t, "submitted_at DESC", DBOrdering{Field: "submitted_at"}.String())
}
