package calculator

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"course-rating/pkg/models"

	"github.com/schollz/progressbar/v3"
)

// Source hands over the reviews to score. csvsource.Reader and
// database.Loader implement it.
type Source interface {
	LoadReviews(ctx context.Context) ([]models.Review, error)
}

// Run loads the reviews from src and scores every course, sorted by name.
// The reference date actually used is returned alongside the results.
func Run(ctx context.Context, src Source, agg Aggregator, cfg models.Config) ([]models.CourseResult, time.Time, error) {
	reviews, err := src.LoadReviews(ctx)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load reviews: %w", err)
	}
	if cfg.Course != "" {
		reviews = FilterCourse(reviews, cfg.Course)
	}
	if len(reviews) == 0 {
		return nil, time.Time{}, ErrNoReviews
	}

	ref := cfg.Reference
	if ref.IsZero() {
		ref = ReferenceFromLatest(reviews, DefaultReferenceOffsetDays)
	}
	if cfg.Verbose {
		log.Printf("[DEBUG] reviews=%d reference=%s policy=%s", len(reviews), ref.Format(time.DateTime), agg.Policy)
	}

	courses, byCourse := groupByCourse(reviews)
	bar := newBar(cfg.ProgressOut, len(courses))

	results := make([]models.CourseResult, 0, len(courses))
	for _, c := range courses {
		if err := ctx.Err(); err != nil {
			return nil, ref, err
		}
		res, err := agg.Score(c, byCourse[c], ref)
		if err != nil {
			return nil, ref, fmt.Errorf("score %s: %w", CourseLabel(c), err)
		}
		results = append(results, res)

		_ = bar.Add(1)
		if cfg.Verbose {
			log.Printf("[INFO] %s -> weighted=%.6f | time=%.6f user=%.6f reviews=%d",
				CourseLabel(c), res.Weighted, res.TimeBased, res.UserBased, res.Reviews)
		}
	}
	_ = bar.Finish()
	return results, ref, nil
}

func newBar(w io.Writer, n int) *progressbar.ProgressBar {
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("scoring courses"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// FilterCourse keeps the reviews of one course.
func FilterCourse(reviews []models.Review, course string) []models.Review {
	var out []models.Review
	for _, r := range reviews {
		if r.Course == course {
			out = append(out, r)
		}
	}
	return out
}

func groupByCourse(reviews []models.Review) ([]string, map[string][]models.Review) {
	by := map[string][]models.Review{}
	for _, r := range reviews {
		by[r.Course] = append(by[r.Course], r)
	}
	courses := make([]string, 0, len(by))
	for c := range by {
		courses = append(courses, c)
	}
	sort.Strings(courses)
	return courses, by
}

// CourseLabel names a course in logs and reports; reviews without a course
// are reported as "all".
func CourseLabel(c string) string {
	if c == "" {
		return "all"
	}
	return c
}

// ParseReference accepts "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS", read as UTC.
func ParseReference(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateTime, time.DateOnly, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("reference date %q: want YYYY-MM-DD or YYYY-MM-DD HH:MM:SS", s)
}
