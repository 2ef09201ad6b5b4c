package admission

import (
	"github.com/pkg/errors"

	"github.com/trezcool/backoffice/core"
)

// DocumentRequirement is one document type expected for a program type.
type DocumentRequirement struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// Catalog maps each program type to its expected documents, in display order.
type Catalog map[ProgramType][]DocumentRequirement

// DefaultCatalog is used for program types missing from the configuration.
var DefaultCatalog = Catalog{
	ProgramUniversity: {
		{ID: "id_document", Label: "Pièce d'identité", Required: true},
		{ID: "birth_certificate", Label: "Acte de naissance", Required: true},
		{ID: "diploma", Label: "Diplôme du baccalauréat", Required: true},
		{ID: "transcript", Label: "Relevés de notes", Required: true},
		{ID: "photo", Label: "Photo d'identité", Required: true},
		{ID: "motivation_letter", Label: "Lettre de motivation", Required: false},
	},
	ProgramFormation: {
		{ID: "id_document", Label: "Pièce d'identité", Required: true},
		{ID: "cv", Label: "Curriculum vitae", Required: true},
		{ID: "photo", Label: "Photo d'identité", Required: true},
		{ID: "motivation_letter", Label: "Lettre de motivation", Required: false},
	},
	ProgramFablab: {
		{ID: "id_document", Label: "Pièce d'identité", Required: true},
		{ID: "membership_form", Label: "Formulaire d'adhésion signé", Required: true},
		{ID: "portfolio", Label: "Portfolio", Required: false},
	},
}

// NewCatalog builds a Catalog from configuration, keeping defaults for unconfigured program types.
func NewCatalog(conf map[string][]core.DocumentTypeConfig) (Catalog, error) {
	cat := make(Catalog, len(DefaultCatalog))
	for pt, reqs := range DefaultCatalog {
		cat[pt] = reqs
	}

	for key, docs := range conf {
		pt := ProgramType(core.CleanString(key, true /* lower */))
		if !pt.IsValid() {
			return nil, errors.Errorf("documents: unknown program type %q", key)
		}
		reqs := make([]DocumentRequirement, 0, len(docs))
		seen := make(map[string]bool, len(docs))
		for _, d := range docs {
			id := core.CleanString(d.ID, true /* lower */)
			if id == "" {
				return nil, errors.Errorf("documents.%s: missing document id", key)
			}
			if seen[id] {
				return nil, errors.Errorf("documents.%s: duplicate document id %q", key, id)
			}
			seen[id] = true
			label := core.CleanString(d.Label)
			if label == "" {
				label = id
			}
			reqs = append(reqs, DocumentRequirement{ID: id, Label: label, Required: !d.Optional})
		}
		cat[pt] = reqs
	}
	return cat, nil
}

// Requirements returns a copy of the documents expected for pt.
func (c Catalog) Requirements(pt ProgramType) []DocumentRequirement {
	reqs := c[pt]
	out := make([]DocumentRequirement, len(reqs))
	copy(out, reqs)
	return out
}
