package csvsource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const courseReviews = `Rating,Timestamp,Enrolled,Progress,Questions Asked,Questions Answered
5.0,2021-02-05 07:45:55,2021-01-25 15:12:08,100.0,0.0,0.0
4.5,2021-02-04 21:05:32,2021-02-04 20:43:40,1.0,0.0,0.0
4.0,2021-01-30 12:00:00+00:00,2019-07-04 23:23:27,1.0,2.0,1.0
`

func TestParse(t *testing.T) {
	got, err := Parse(context.Background(), strings.NewReader(courseReviews))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d reviews, want 3", len(got))
	}
	first := got[0]
	if first.Rating != 5 || first.Progress != 100 || first.Course != "" {
		t.Fatalf("unexpected first review: %+v", first)
	}
	if want := time.Date(2021, 2, 5, 7, 45, 55, 0, time.UTC); !first.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", first.Timestamp, want)
	}
	if got[2].QuestionsAsked != 2 || got[2].QuestionsAnswered != 1 {
		t.Fatalf("questions not parsed: %+v", got[2])
	}
	if got[2].Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp not normalised to UTC: %v", got[2].Timestamp)
	}
}

func TestParse_HeaderOrderAndCourse(t *testing.T) {
	in := "progress, COURSE ,enrolled,rating,timestamp\n" +
		"50,go-101,2020-01-01,3,2020-06-01T10:00:00Z\n"
	got, err := Parse(context.Background(), strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Course != "go-101" || got[0].Rating != 3 || got[0].Progress != 50 {
		t.Fatalf("unexpected review: %+v", got)
	}
	if got[0].QuestionsAsked != 0 {
		t.Fatalf("absent column should read as 0, got %d", got[0].QuestionsAsked)
	}
}

func TestParse_MissingColumn(t *testing.T) {
	_, err := Parse(context.Background(), strings.NewReader("Rating,Timestamp,Enrolled\n5,2021-01-01,2021-01-01\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
	if !strings.Contains(err.Error(), "progress") {
		t.Fatalf("error should name the column: %v", err)
	}
}

func TestParse_BadRows(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		wantErr string
	}{
		{"rating", "x,2021-01-01,2021-01-01,1", "rating"},
		{"progress", "5,2021-01-01,2021-01-01,lots", "progress"},
		{"nan rating", "NaN,2021-01-01,2021-01-01,1", "rating \"NaN\": not finite"},
		{"inf rating", "+Inf,2021-01-01,2021-01-01,1", "rating \"+Inf\": not finite"},
		{"nan progress", "5,2021-01-01,2021-01-01,nan", "progress \"nan\": not finite"},
		{"inf progress", "5,2021-01-01,2021-01-01,-Inf", "progress \"-Inf\": not finite"},
		{"timestamp", "5,yesterday,2021-01-01,1", "timestamp"},
		{"enrolled", "5,2021-01-01,01/01/2021,1", "enrolled"},
		{"field count", "5,2021-01-01", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := "Rating,Timestamp,Enrolled,Progress\n" + tt.row + "\n"
			_, err := Parse(context.Background(), strings.NewReader(in))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want contains %q", err, tt.wantErr)
			}
		})
	}
}

func TestReader_LoadReviews(t *testing.T) {
	path := filepath.Join(t.TempDir(), "course_reviews.csv")
	if err := os.WriteFile(path, []byte(courseReviews), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Reader{Path: path}.LoadReviews(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d reviews, want 3", len(got))
	}

	if _, err := (Reader{Path: filepath.Join(t.TempDir(), "nope.csv")}).LoadReviews(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("2021-02-05 07:45:55+02:00")
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2021, 2, 5, 5, 45, 55, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
