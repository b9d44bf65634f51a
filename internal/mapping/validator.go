package mapping

import (
	"golang-social-analytics-service/internal/models"
	"golang-social-analytics-service/internal/normalize"
	apperrors "golang-social-analytics-service/pkg/errors"
)

// ValidateRequired determines whether every mandatory internal field for
// the category can be resolved from the file's headers through the mapping
// table. Missing fields are reported by display name. Well-formed input
// never produces an error; nil headers or a nil table are contract
// violations.
func ValidateRequired(headers []string, table Table, category models.Category) (apperrors.ValidationResult, error) {
	if headers == nil {
		return apperrors.ValidationResult{}, apperrors.InvalidInputError("validate", "headers must be a non-nil string slice")
	}
	if table == nil {
		return apperrors.ValidationResult{}, apperrors.InvalidInputError("validate", "mapping table must be non-nil")
	}

	headerSet := make(map[string]bool, len(headers))
	for _, h := range normalize.Headers(headers) {
		headerSet[h] = true
	}

	// Reverse the table once: internal field to its external source names
	reverse := make(map[string][]string, len(table))
	for external, internal := range table {
		reverse[internal] = append(reverse[internal], external)
	}

	var missing []string
	for _, field := range models.RequiredFields(category) {
		if !anyExternalPresent(reverse[field], headerSet) {
			missing = append(missing, models.DisplayName(field))
		}
	}

	return apperrors.ValidationResult{
		IsValid: len(missing) == 0,
		Missing: missing,
	}, nil
}

func anyExternalPresent(externals []string, headerSet map[string]bool) bool {
	for _, external := range externals {
		if headerSet[normalize.Header(external)] {
			return true
		}
	}
	return false
}
