package services

import (
	"regexp"

	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/nexconsult/nif-lookup/internal/utils"
	"github.com/sirupsen/logrus"
)

// ExtractionRule is one entry of the ordered identifier cascade.
// Pattern must capture exactly one nine-digit group.
type ExtractionRule struct {
	Tag        string
	Pattern    *regexp.Regexp
	LastResort bool
}

// Rule tags, in priority order
const (
	RuleLabelColon          = "label_colon"
	RuleLabelSpace          = "label_space"
	RuleLabelLoose          = "label_loose"
	RuleDataAttribute       = "data_attribute"
	RuleClassWrapped        = "class_wrapped"
	RuleTagLabel            = "tag_label"
	RuleTagContribuinte     = "tag_contribuinte"
	RuleContribuinteWrapped = "contribuinte_wrapped"
	RuleAnyNineDigits       = "any_nine_digits"
)

// DefaultExtractionRules returns the registry's identifier rules, most specific first
func DefaultExtractionRules() []ExtractionRule {
	return []ExtractionRule{
		{Tag: RuleLabelColon, Pattern: regexp.MustCompile(`NIF:\s*(\d{9})\b`)},
		{Tag: RuleLabelSpace, Pattern: regexp.MustCompile(`NIF\s+(\d{9})\b`)},
		{Tag: RuleLabelLoose, Pattern: regexp.MustCompile(`NIF[^0-9]*(\d{9})\b`)},
		{Tag: RuleDataAttribute, Pattern: regexp.MustCompile(`data-nif="(\d{9})"`)},
		{Tag: RuleClassWrapped, Pattern: regexp.MustCompile(`class="nif"[^>]*>(\d{9})<`)},
		{Tag: RuleTagLabel, Pattern: regexp.MustCompile(`>NIF:\s*(\d{9})<`)},
		{Tag: RuleTagContribuinte, Pattern: regexp.MustCompile(`>Nº Contribuinte:\s*(\d{9})<`)},
		{Tag: RuleContribuinteWrapped, Pattern: regexp.MustCompile(`contribuinte[^>]*>(\d{9})<`)},
		// Matches any unrelated nine-digit number on the page
		{Tag: RuleAnyNineDigits, Pattern: regexp.MustCompile(`\b(\d{9})\b`), LastResort: true},
	}
}

// PatternExtractor applies the rule cascade to raw page markup
type PatternExtractor struct {
	rules  []ExtractionRule
	logger *logrus.Logger
}

// NewPatternExtractor creates an extractor; a nil rule list selects the defaults
func NewPatternExtractor(rules []ExtractionRule, logger *logrus.Logger) *PatternExtractor {
	if rules == nil {
		rules = DefaultExtractionRules()
	}
	return &PatternExtractor{
		rules:  rules,
		logger: logger,
	}
}

// Rules returns the rule table in evaluation order
func (e *PatternExtractor) Rules() []ExtractionRule {
	return e.rules
}

// Extract returns the capture of the first rule that matches anywhere in markup
func (e *PatternExtractor) Extract(markup string) models.ExtractionOutcome {
	for _, rule := range e.rules {
		match := rule.Pattern.FindStringSubmatch(markup)
		if len(match) < 2 || !models.IsNIFShaped(match[1]) {
			continue
		}

		outcome := models.ExtractionOutcome{
			Status:        models.ExtractionFound,
			Identifier:    match[1],
			MatchedRule:   rule.Tag,
			ChecksumValid: utils.IsValidNIF(match[1]),
		}
		outcome.Suspect = rule.LastResort || !outcome.ChecksumValid

		if outcome.Suspect {
			e.logger.WithFields(logrus.Fields{
				"nif":            outcome.Identifier,
				"rule":           rule.Tag,
				"checksum_valid": outcome.ChecksumValid,
			}).Warn("Extracted NIF is suspect")
		} else {
			e.logger.WithFields(logrus.Fields{
				"nif":  outcome.Identifier,
				"rule": rule.Tag,
			}).Debug("NIF extracted")
		}
		return outcome
	}

	return models.ExtractionOutcome{Status: models.ExtractionNotFound}
}
