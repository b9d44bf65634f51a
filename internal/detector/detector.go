// Package detector classifies uploaded statistics files into source
// categories by scoring header overlap against per-category indicator
// keyword lists.
//
// The keyword lists are bilingual (Swedish and English) because the vendor
// exports change column language with the interface locale. Detection is
// deterministic: categories are scored in a fixed enumeration order and the
// first category reaching the highest count wins a tie.
package detector

import (
	"strings"

	"golang-social-analytics-service/internal/models"
	"golang-social-analytics-service/internal/normalize"
	apperrors "golang-social-analytics-service/pkg/errors"
)

// indicatorSet pairs a category with its indicator keywords. Order matters:
// ties resolve to the earliest entry, and tests depend on this precedence.
type indicatorSet struct {
	category models.Category
	keywords []string
}

var indicators = []indicatorSet{
	{
		category: models.CategoryDailySummary,
		keywords: []string{
			"datum",
			"målgrupp som nåtts",
			"accounts reached",
			"räckvidd",
			"profilbesök",
			"profile visits",
			"nya följare",
			"new follows",
		},
	},
	{
		category: models.CategoryPerItem,
		keywords: []string{
			"publiceringstid",
			"publish time",
			"beskrivning",
			"description",
			"inläggstyp",
			"post type",
			"visningar",
			"views",
			"varaktighet",
			"duration",
			"sparade",
			"saves",
		},
	},
	{
		category: models.CategoryFacebook,
		keywords: []string{
			"sidvisningar",
			"page views",
			"sidgilla",
			"page likes",
			"page reach",
			"sidans följare",
			"facebook",
		},
	},
	{
		category: models.CategoryTikTok,
		keywords: []string{
			"videovisningar",
			"video views",
			"total speltid",
			"total play time",
			"genomsnittlig visningstid",
			"average watch time",
			"tiktok",
		},
	},
}

// minimum keyword matches before a score-based classification is trusted
const minMatchThreshold = 2

var dateHints = []string{"datum", "date"}
var titleHints = []string{"titel", "title", "beskrivning", "description", "bildtext", "caption"}

// Detect classifies a file's header row into a category. It is a pure
// function of the headers: the same input always yields the same category.
// A nil header slice is a contract violation and returns an error; any
// well-formed slice, including an empty one, classifies without error.
func Detect(headers []string) (models.Category, error) {
	if headers == nil {
		return models.CategoryUnknown, apperrors.InvalidInputError("detect", "headers must be a non-nil string slice")
	}

	normalized := normalize.Headers(headers)

	bestCategory := models.CategoryUnknown
	bestScore := 0
	for _, set := range indicators {
		score := matchCount(normalized, set.keywords)
		if score > bestScore {
			bestScore = score
			bestCategory = set.category
		}
	}

	if bestScore >= minMatchThreshold {
		return bestCategory, nil
	}

	return fallbackDetect(normalized), nil
}

// matchCount counts how many keywords appear as an exact or substring
// match among the normalized headers.
func matchCount(headers []string, keywords []string) int {
	count := 0
	for _, keyword := range keywords {
		if anyHeaderContains(headers, keyword) {
			count++
		}
	}
	return count
}

func anyHeaderContains(headers []string, keyword string) bool {
	for _, header := range headers {
		if strings.Contains(header, keyword) {
			return true
		}
	}
	return false
}

// fallbackDetect applies the secondary heuristics when keyword scoring is
// inconclusive. The precedence order (date hints, then title hints, then
// foreign platform hints) is deliberate and must not be reordered:
// downstream behavior depends on it.
func fallbackDetect(headers []string) models.Category {
	if anyKeywordMatches(headers, dateHints) {
		return models.CategoryDailySummary
	}
	if anyKeywordMatches(headers, titleHints) {
		return models.CategoryPerItem
	}
	for _, set := range indicators {
		if set.category.IsSupported() {
			continue
		}
		if matchCount(headers, set.keywords) > 0 {
			return set.category
		}
	}
	return models.CategoryUnknown
}

func anyKeywordMatches(headers []string, keywords []string) bool {
	for _, keyword := range keywords {
		if anyHeaderContains(headers, keyword) {
			return true
		}
	}
	return false
}
