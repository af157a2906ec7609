package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/sirupsen/logrus"
)

// OutputHeader is the header row of checkpoint and final files
var OutputHeader = []string{"company_name", "nif"}

// CSVRecordSink writes checkpoints and the final result list as CSV files.
// Each write replaces the file atomically.
type CSVRecordSink struct {
	progressPath string
	outputPath   string
	logger       *logrus.Logger
}

// NewCSVRecordSink creates a file-backed sink
func NewCSVRecordSink(progressPath, outputPath string, logger *logrus.Logger) *CSVRecordSink {
	return &CSVRecordSink{
		progressPath: progressPath,
		outputPath:   outputPath,
		logger:       logger,
	}
}

func (s *CSVRecordSink) WriteCheckpoint(results []models.CompanyResult) error {
	return s.write(s.progressPath, results)
}

func (s *CSVRecordSink) WriteFinal(results []models.CompanyResult) error {
	if err := s.write(s.outputPath, results); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"path": s.outputPath,
		"rows": len(results),
	}).Info("Results saved")
	return nil
}

func (s *CSVRecordSink) write(path string, results []models.CompanyResult) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	werr := WriteResultsCSV(tmp, results)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// WriteResultsCSV writes the company_name,nif table
func WriteResultsCSV(w io.Writer, results []models.CompanyResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(OutputHeader); err != nil {
		return err
	}
	for _, r := range results {
		if err := writer.Write([]string{r.CompanyName, r.NIF}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCompanyQueries reads a headerless list, one company name per row.
// Rows split on unquoted commas are re-joined so "Acme, Lda." stays whole.
func ReadCompanyQueries(r io.Reader) ([]models.CompanyQuery, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = false

	var names []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		names = append(names, strings.Join(record, ","))
	}

	return models.NewCompanyQueries(names), nil
}

// ReadCompanyQueriesFile opens path and reads it with ReadCompanyQueries
func ReadCompanyQueriesFile(path string) ([]models.CompanyQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}
	defer f.Close()

	return ReadCompanyQueries(f)
}

// MemorySink keeps every write in memory
type MemorySink struct {
	mu          sync.RWMutex
	checkpoints [][]models.CompanyResult
	final       []models.CompanyResult
	finalWrites int
	onWrite     func([]models.CompanyResult)
}

// NewMemorySink creates an in-memory sink. onWrite, if set, observes every write.
func NewMemorySink(onWrite func([]models.CompanyResult)) *MemorySink {
	return &MemorySink{onWrite: onWrite}
}

func (s *MemorySink) WriteCheckpoint(results []models.CompanyResult) error {
	snapshot := append([]models.CompanyResult(nil), results...)

	s.mu.Lock()
	s.checkpoints = append(s.checkpoints, snapshot)
	s.mu.Unlock()

	if s.onWrite != nil {
		s.onWrite(snapshot)
	}
	return nil
}

func (s *MemorySink) WriteFinal(results []models.CompanyResult) error {
	snapshot := append([]models.CompanyResult(nil), results...)

	s.mu.Lock()
	s.final = snapshot
	s.finalWrites++
	s.mu.Unlock()

	if s.onWrite != nil {
		s.onWrite(snapshot)
	}
	return nil
}

// Checkpoints returns every checkpoint snapshot in write order
func (s *MemorySink) Checkpoints() [][]models.CompanyResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([][]models.CompanyResult(nil), s.checkpoints...)
}

// Final returns the last final write and how many final writes happened
func (s *MemorySink) Final() ([]models.CompanyResult, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.final, s.finalWrites
}
