package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nexconsult/nif-lookup/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	legalSuffixPattern = regexp.MustCompile(`[,\s]*\b(?:unipessoal\s*)?lda\b\.?`)
	connectorPattern   = regexp.MustCompile(`[&+]`)
	separatorPattern   = regexp.MustCompile(`[^a-z0-9]+`)

	accentReplacer = strings.NewReplacer(
		"ç", "c",
		"ã", "a", "á", "a", "à", "a", "â", "a",
		"é", "e", "ê", "e",
		"í", "i",
		"ó", "o", "õ", "o", "ô", "o",
		"ú", "u", "ü", "u",
		"ñ", "n",
	)
)

// legalSuffixMarker is the trailing token the keep policy rewrites a legal form into
const legalSuffixMarker = "-lda"

// NameNormalizer turns raw company names into registry URL slugs
type NameNormalizer struct{}

// NewNameNormalizer creates a new name normalizer
func NewNameNormalizer() *NameNormalizer {
	return &NameNormalizer{}
}

// Normalize returns one or two candidate slugs, most specific first.
// The keep-marker variant precedes the stripped one; identical or empty
// variants are dropped.
func (n *NameNormalizer) Normalize(rawName string) []models.CandidateSlug {
	lowered := strings.ToLower(strings.TrimSpace(rawName))

	candidates := make([]models.CandidateSlug, 0, 2)
	seen := make(map[string]bool, 2)

	for _, policy := range []models.SlugPolicy{models.SlugPolicyKeepMarker, models.SlugPolicyStripSuffix} {
		slug := n.slugify(applySuffixPolicy(lowered, policy))
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		candidates = append(candidates, models.CandidateSlug{Value: slug, Policy: policy})
	}

	return candidates
}

// Fold reduces a name to its comparable form: lower-cased, suffix stripped,
// diacritics folded and separators collapsed to single spaces.
func (n *NameNormalizer) Fold(rawName string) string {
	lowered := strings.ToLower(strings.TrimSpace(rawName))
	return strings.ReplaceAll(n.slugify(applySuffixPolicy(lowered, models.SlugPolicyStripSuffix)), "-", " ")
}

func applySuffixPolicy(name string, policy models.SlugPolicy) string {
	if policy == models.SlugPolicyKeepMarker {
		return legalSuffixPattern.ReplaceAllString(name, legalSuffixMarker)
	}
	return legalSuffixPattern.ReplaceAllString(name, "")
}

func (n *NameNormalizer) slugify(name string) string {
	name = accentReplacer.Replace(name)
	name = foldDiacritics(name)
	name = connectorPattern.ReplaceAllString(name, "e")
	name = separatorPattern.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}

// foldDiacritics strips combining marks the explicit map does not cover
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
