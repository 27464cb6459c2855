// Package csvsource loads course reviews from a CSV export.
//
// The header decides the column order. Required columns are Rating,
// Timestamp, Enrolled and Progress; Course, Questions Asked and
// Questions Answered are optional.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"course-rating/pkg/models"
)

// ErrMissingColumn is wrapped when a required header is absent.
var ErrMissingColumn = errors.New("csvsource: missing column")

const (
	colCourse            = "course"
	colRating            = "rating"
	colTimestamp         = "timestamp"
	colEnrolled          = "enrolled"
	colProgress          = "progress"
	colQuestionsAsked    = "questions asked"
	colQuestionsAnswered = "questions answered"
)

var required = []string{colRating, colTimestamp, colEnrolled, colProgress}

// Accepted timestamp layouts, tried in order.
var layouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02",
}

// Reader reads reviews from a CSV file.
type Reader struct {
	Path string
}

// LoadReviews opens Path and parses every row.
func (r Reader) LoadReviews(ctx context.Context) ([]models.Review, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f)
}

// Parse reads reviews from CSV data with a header line.
func Parse(ctx context.Context, in io.Reader) ([]models.Review, error) {
	cr := csv.NewReader(in)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range required {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, c)
		}
	}
	cr.FieldsPerRecord = len(header)

	var out []models.Review
	for line := 2; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rv, err := parseRecord(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rv)
	}
	return out, nil
}

func parseRecord(rec []string, idx map[string]int) (models.Review, error) {
	field := func(name string) (string, bool) {
		i, ok := idx[name]
		if !ok {
			return "", false
		}
		return strings.TrimSpace(rec[i]), true
	}

	var (
		rv  models.Review
		err error
	)
	if v, ok := field(colCourse); ok {
		rv.Course = v
	}
	v, _ := field(colRating)
	if rv.Rating, err = parseFinite(v); err != nil {
		return rv, fmt.Errorf("rating %q: %w", v, err)
	}
	v, _ = field(colProgress)
	if rv.Progress, err = parseFinite(v); err != nil {
		return rv, fmt.Errorf("progress %q: %w", v, err)
	}
	v, _ = field(colTimestamp)
	if rv.Timestamp, err = ParseTime(v); err != nil {
		return rv, fmt.Errorf("timestamp: %w", err)
	}
	v, _ = field(colEnrolled)
	if rv.Enrolled, err = ParseTime(v); err != nil {
		return rv, fmt.Errorf("enrolled: %w", err)
	}
	if rv.QuestionsAsked, err = optionalCount(field(colQuestionsAsked)); err != nil {
		return rv, fmt.Errorf("questions asked: %w", err)
	}
	if rv.QuestionsAnswered, err = optionalCount(field(colQuestionsAnswered)); err != nil {
		return rv, fmt.Errorf("questions answered: %w", err)
	}
	return rv, nil
}

// parseFinite rejects NaN and ±Inf, which strconv accepts.
func parseFinite(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not finite")
	}
	return f, nil
}

// optionalCount reads an integer column that may be absent or empty.
// Pandas exports counts as floats ("2.0"), so those are accepted too.
func optionalCount(v string, ok bool) (int, error) {
	if !ok || v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// ParseTime parses a timestamp in any accepted layout. Values without a
// zone are read as UTC.
func ParseTime(v string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", v)
}
