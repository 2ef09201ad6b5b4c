package admission

import "math"

// Completeness returns the percentage of required documents that have been submitted.
// Optional documents never count; with no required document the set is complete.
func Completeness(docs []DocumentRecord) int {
	var required, submitted int
	for _, doc := range docs {
		if !doc.Required {
			continue
		}
		required++
		if doc.Submitted {
			submitted++
		}
	}
	if required == 0 {
		return 100
	}
	return int(math.Round(100 * float64(submitted) / float64(required)))
}

// MissingDocuments lists the required documents not yet submitted.
func MissingDocuments(docs []DocumentRecord) []DocumentRecord {
	var missing []DocumentRecord
	for _, doc := range docs {
		if doc.Required && !doc.Submitted {
			missing = append(missing, doc)
		}
	}
	return missing
}
