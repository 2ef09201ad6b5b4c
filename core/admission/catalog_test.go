package admission_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
)

func TestNewCatalog(t *testing.T) {
	cat, err := admission.NewCatalog(map[string][]core.DocumentTypeConfig{
		"Formation": {
			{ID: " CV ", Label: "Curriculum vitae"},
			{ID: "certificate"},
			{ID: "letter", Label: "Lettre", Optional: true},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []admission.DocumentRequirement{
		{ID: "cv", Label: "Curriculum vitae", Required: true},
		{ID: "certificate", Label: "certificate", Required: true},
		{ID: "letter", Label: "Lettre", Required: false},
	}, cat.Requirements(admission.ProgramFormation))

	// unconfigured program types keep their defaults
	assert.Equal(t, admission.DefaultCatalog.Requirements(admission.ProgramUniversity), cat.Requirements(admission.ProgramUniversity))
}

func TestNewCatalog_errors(t *testing.T) {
	tests := []struct {
		name       string
		conf       map[string][]core.DocumentTypeConfig
		wantErrStr string
	}{
		{
			name:       "unknown program type",
			conf:       map[string][]core.DocumentTypeConfig{"school": {{ID: "x"}}},
			wantErrStr: `documents: unknown program type "school"`,
		},
		{
			name:       "missing id",
			conf:       map[string][]core.DocumentTypeConfig{"fablab": {{Label: "x"}}},
			wantErrStr: "documents.fablab: missing document id",
		},
		{
			name:       "duplicate id",
			conf:       map[string][]core.DocumentTypeConfig{"fablab": {{ID: "photo"}, {ID: "Photo"}}},
			wantErrStr: `documents.fablab: duplicate document id "photo"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := admission.NewCatalog(tt.conf)
			assert.EqualError(t, err, tt.wantErrStr)
		})
	}
}

func TestCatalog_Requirements(t *testing.T) {
	reqs := admission.DefaultCatalog.Requirements(admission.ProgramFablab)
	reqs[0].Required = false
	assert.True(t, admission.DefaultCatalog.Requirements(admission.ProgramFablab)[0].Required)

	assert.Empty(t, admission.DefaultCatalog.Requirements("school"))
}
