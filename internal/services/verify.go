package services

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"github.com/sirupsen/logrus"
)

// NameCheck is the comparison between the queried name and the page's name
type NameCheck struct {
	DisplayedName string
	Similarity    float64
	Mismatch      bool
}

// NameVerifier compares a landed page's company name with the queried one.
// It only flags; a mismatch never discards the result.
type NameVerifier struct {
	normalizer *NameNormalizer
	threshold  float64
	logger     *logrus.Logger
}

// NewNameVerifier creates a verifier with a Jaro-Winkler threshold in [0, 1]
func NewNameVerifier(normalizer *NameNormalizer, threshold float64, logger *logrus.Logger) *NameVerifier {
	return &NameVerifier{
		normalizer: normalizer,
		threshold:  threshold,
		logger:     logger,
	}
}

// Verify returns ok=false when the page shows no recognisable name
func (v *NameVerifier) Verify(rawName, html string) (NameCheck, bool) {
	displayed := DisplayedCompanyName(html)
	if displayed == "" {
		return NameCheck{}, false
	}

	want := v.normalizer.Fold(rawName)
	got := v.normalizer.Fold(displayed)
	if want == "" || got == "" {
		return NameCheck{DisplayedName: displayed}, false
	}

	check := NameCheck{
		DisplayedName: displayed,
		Similarity:    matchr.JaroWinkler(want, got, false),
	}
	// Registry titles often append the town or the site name
	if strings.HasPrefix(got, want) {
		check.Similarity = 1
	}
	check.Mismatch = check.Similarity < v.threshold

	if check.Mismatch {
		v.logger.WithFields(logrus.Fields{
			"company":    rawName,
			"displayed":  displayed,
			"similarity": check.Similarity,
		}).Warn("Landed page shows a different company name")
	}
	return check, true
}

// DisplayedCompanyName reads the first of h1, og:title and title
func DisplayedCompanyName(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
