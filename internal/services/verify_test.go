package services

import (
	"testing"

	"github.com/nexconsult/nif-lookup/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayedCompanyName(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"h1 first", `<html><head><title>T</title></head><body><h1> Acme, Lda. </h1></body></html>`, "Acme, Lda."},
		{"og title", `<html><head><meta property="og:title" content="Acme Lda"><title>T</title></head><body></body></html>`, "Acme Lda"},
		{"title", `<html><head><title>Acme - Racius</title></head></html>`, "Acme - Racius"},
		{"nothing", `<html><body><p>x</p></body></html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayedCompanyName(tt.html))
		})
	}
}

func TestNameVerifier_Verify(t *testing.T) {
	v := NewNameVerifier(NewNameNormalizer(), 0.85, logger.Discard())

	check, ok := v.Verify("ACME, LDA.", `<h1>Acme Lda</h1>`)
	require.True(t, ok)
	assert.Equal(t, 1.0, check.Similarity)
	assert.False(t, check.Mismatch)

	check, ok = v.Verify("Acme", `<title>Acme Comércio - Racius</title>`)
	require.True(t, ok)
	assert.False(t, check.Mismatch, "title suffixes are tolerated")

	check, ok = v.Verify("Padaria Central", `<h1>Construções Norte, S.A.</h1>`)
	require.True(t, ok)
	assert.True(t, check.Mismatch)

	_, ok = v.Verify("Acme", `<p>no name here</p>`)
	assert.False(t, ok)
}
