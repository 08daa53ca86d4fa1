package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"megafacil/models"
)

// Columns every history file must carry
const sequenceColumn = "concurso"

var numberColumns = [models.NumbersPerDraw]string{"n1", "n2", "n3", "n4", "n5", "n6"}

// CSVProvider reads the draw history from a CSV file with a header row
type CSVProvider struct {
	path string
}

// NewCSVProvider creates a provider for the file at path
func NewCSVProvider(path string) *CSVProvider {
	return &CSVProvider{path: path}
}

// Path returns the file the provider reads
func (p *CSVProvider) Path() string {
	return p.path
}

// Load parses the whole file on every call; wrap it in a Cache to avoid re-reading
func (p *CSVProvider) Load(_ context.Context) ([]models.Draw, error) {
	f, err := os.Open(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: csv not found: %s", models.ErrHistoryUnavailable, p.path)
		}
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()

	draws, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p.path, err)
	}
	return draws, nil
}

// ParseCSV reads draws from CSV content. Rows with unparsable or invalid values
// are skipped; a repeated sequence id keeps the last row. The result is sorted
// ascending by sequence id.
func ParseCSV(r io.Reader) ([]models.Draw, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	seqIdx, ok := index[sequenceColumn]
	if !ok {
		return nil, fmt.Errorf("missing column in CSV: %s", sequenceColumn)
	}
	var numIdx [models.NumbersPerDraw]int
	for i, col := range numberColumns {
		idx, ok := index[col]
		if !ok {
			return nil, fmt.Errorf("missing column in CSV: %s", col)
		}
		numIdx[i] = idx
	}

	bySequence := make(map[int64]models.Draw)
	skipped := 0
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		draw, ok := parseRecord(record, seqIdx, numIdx)
		if !ok || draw.Validate() != nil {
			skipped++
			continue
		}
		bySequence[draw.SequenceID] = draw
	}

	draws := make([]models.Draw, 0, len(bySequence))
	for _, d := range bySequence {
		draws = append(draws, d)
	}
	sort.Slice(draws, func(i, j int) bool {
		return draws[i].SequenceID < draws[j].SequenceID
	})

	if skipped > 0 {
		log.WithFields(log.Fields{
			"skipped": skipped,
			"loaded":  len(draws),
		}).Warn("Skipped invalid history rows")
	}

	return draws, nil
}

func parseRecord(record []string, seqIdx int, numIdx [models.NumbersPerDraw]int) (models.Draw, bool) {
	var draw models.Draw

	seq, ok := field(record, seqIdx)
	if !ok {
		return draw, false
	}
	draw.SequenceID = int64(seq)

	for i, idx := range numIdx {
		n, ok := field(record, idx)
		if !ok {
			return draw, false
		}
		draw.Numbers[i] = n
	}
	return draw, true
}

func field(record []string, idx int) (int, bool) {
	if idx >= len(record) {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(record[idx]))
	if err != nil {
		return 0, false
	}
	return v, true
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
