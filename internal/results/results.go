// Package results looks students up in the results CSV file.
package results

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/schoolbot/core/logger"
)

const (
	colID   = "student_id"
	colName = "name"
)

// DefaultSubjects is the header written into a freshly seeded results file.
var DefaultSubjects = []string{
	"Math", "English", "Physics", "Chemistry", "Biology", "IT", "Economics",
	"History", "Geography", "Citizenship", "Amharic", "Kembatissa",
	"Computer maintenance", "Web development", "Art", "HPE", "CTE",
	"Social Studies", "General Science", "Marketing", "Accounting",
}

// Score is one graded subject.
type Score struct {
	Subject string
	Value   float64
}

// Result is the reduction of one student row.
type Result struct {
	Scores  []Score
	Total   float64
	Average float64
}

// Count returns the number of graded subjects.
func (r Result) Count() int { return len(r.Scores) }

// Lookup scans the results file on every query; the file may be replaced
// while the bot runs.
type Lookup struct {
	path string
}

// New returns a lookup over the CSV file at path.
func New(path string) *Lookup {
	return &Lookup{path: path}
}

// Path returns the file the lookup reads.
func (l *Lookup) Path() string { return l.path }

// Find returns the row whose name and id match, ignoring case and
// surrounding spaces. A missing or unreadable file is logged and reported as
// not found.
func (l *Lookup) Find(ctx context.Context, name, id string) (Result, bool) {
	start := time.Now()
	res, ok, err := l.find(name, id)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, fs.ErrNotExist) {
			level = slog.LevelWarn
		}
		logger.LogEvent(ctx, logger.SVCResults, level, "results.lookup",
			slog.String("status", "fail"),
			slog.String("file", l.path),
			slog.String("err", err.Error()),
		)
		return Result{}, false
	}
	logger.LogEvent(ctx, logger.SVCResults, slog.LevelDebug, "results.lookup",
		slog.String("status", "ok"),
		slog.Bool("found", ok),
		slog.Int("subjects", res.Count()),
		slog.Duration("duration", logger.Took(start)),
	)
	return res, ok
}

func (l *Lookup) find(name, id string) (Result, bool, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return Result{}, false, err
	}
	defer f.Close()
	return scan(f, name, id)
}

func scan(r io.Reader, name, id string) (Result, bool, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Result{}, false, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	idCol, nameCol := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		switch strings.ToLower(h) {
		case colID:
			idCol = i
		case colName:
			nameCol = i
		}
	}
	if idCol < 0 || nameCol < 0 {
		return Result{}, false, fmt.Errorf("header lacks %s or %s", colID, colName)
	}

	name, id = strings.TrimSpace(name), strings.TrimSpace(id)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return Result{}, false, nil
		}
		if err != nil {
			return Result{}, false, fmt.Errorf("read row: %w", err)
		}
		if cell(row, idCol) == "" || !strings.EqualFold(cell(row, idCol), id) || !strings.EqualFold(cell(row, nameCol), name) {
			continue
		}
		return reduce(header, row, idCol, nameCol), true, nil
	}
}

func reduce(header, row []string, idCol, nameCol int) Result {
	var res Result
	for i, subject := range header {
		if i == idCol || i == nameCol || subject == "" {
			continue
		}
		v, ok := parseScore(cell(row, i))
		if !ok {
			continue
		}
		res.Scores = append(res.Scores, Score{Subject: subject, Value: v})
		res.Total += v
	}
	if n := len(res.Scores); n > 0 {
		res.Total = round2(res.Total)
		res.Average = round2(res.Total / float64(n))
	}
	return res
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseScore accepts an optional % suffix. Empty and malformed cells are skipped.
func parseScore(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "%", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
