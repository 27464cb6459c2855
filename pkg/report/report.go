// Package report writes course results as plain text, JSON or the
// Prometheus text exposition format.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"course-rating/pkg/calculator"
	"course-rating/pkg/models"
)

// Output formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatProm = "prom"
)

// Write renders results in the given format.
func Write(w io.Writer, format string, ref time.Time, results []models.CourseResult) error {
	switch format {
	case FormatText, "":
		return WriteText(w, results)
	case FormatJSON:
		return WriteJSON(w, ref, results)
	case FormatProm:
		return WriteProm(w, results)
	default:
		return fmt.Errorf("unknown format %q: want text|json|prom", format)
	}
}

// WriteText prints one line per course:
// course ; weighted ; time=… ; user=… ; average=… ; reviews=…
func WriteText(w io.Writer, results []models.CourseResult) error {
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%s ; %.15f ; time=%.6f ; user=%.6f ; average=%.6f ; reviews=%d\n",
			calculator.CourseLabel(r.Course), r.Weighted, r.TimeBased, r.UserBased, r.Average, r.Reviews); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary prints the descriptive figures of a review set.
func WriteSummary(w io.Writer, s models.Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "reviews=%d mean_rating=%.5f latest=%s\n", s.Reviews, s.MeanRating, s.LatestReview.Format(time.DateTime))
	fmt.Fprintf(&b, "enrollment_days min=%d max=%d mean=%.5f\n", s.MinEnrollmentDays, s.MaxEnrollmentDays, s.MeanEnrollmentDays)
	b.WriteString("rating distribution:\n")
	for _, rc := range s.Distribution {
		fmt.Fprintf(&b, "  %.1f ; %d\n", rc.Rating, rc.Count)
	}
	b.WriteString("mean rating by questions asked:\n")
	for _, g := range s.ByQuestionsAsked {
		fmt.Fprintf(&b, "  %d ; count=%d ; rating=%.5f\n", g.Key, g.Count, g.MeanRating)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type jsonBucket struct {
	Label  string   `json:"label"`
	Weight float64  `json:"weight"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
}

type jsonResult struct {
	Course      string       `json:"course"`
	Reviews     int          `json:"reviews"`
	Average     *float64     `json:"average"`
	TimeBased   *float64     `json:"time_based"`
	UserBased   *float64     `json:"user_based"`
	Weighted    *float64     `json:"weighted"`
	TimeBuckets []jsonBucket `json:"time_buckets"`
	UserBuckets []jsonBucket `json:"user_buckets"`
}

type jsonReport struct {
	Reference time.Time    `json:"reference"`
	Courses   []jsonResult `json:"courses"`
}

// WriteJSON writes an indented document; NaN figures become null.
func WriteJSON(w io.Writer, ref time.Time, results []models.CourseResult) error {
	doc := jsonReport{Reference: ref, Courses: make([]jsonResult, 0, len(results))}
	for _, r := range results {
		doc.Courses = append(doc.Courses, jsonResult{
			Course:      r.Course,
			Reviews:     r.Reviews,
			Average:     finite(r.Average),
			TimeBased:   finite(r.TimeBased),
			UserBased:   finite(r.UserBased),
			Weighted:    finite(r.Weighted),
			TimeBuckets: jsonBuckets(r.TimeBuckets),
			UserBuckets: jsonBuckets(r.UserBuckets),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func jsonBuckets(stats []models.BucketStat) []jsonBucket {
	out := make([]jsonBucket, 0, len(stats))
	for _, st := range stats {
		out = append(out, jsonBucket{Label: st.Label, Weight: st.Weight, Count: st.Count, Mean: finite(st.Mean)})
	}
	return out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Metric names written by WriteProm.
const (
	MetricWeighted   = "course_rating_weighted"
	MetricTimeBased  = "course_rating_time_based"
	MetricUserBased  = "course_rating_user_based"
	MetricAverage    = "course_rating_average"
	MetricReviews    = "course_rating_reviews"
	MetricBucketMean = "course_rating_bucket_mean"
)

// WriteProm writes gauges in the Prometheus text format, e.g. for the
// node_exporter textfile collector.
func WriteProm(w io.Writer, results []models.CourseResult) error {
	families := []*dto.MetricFamily{
		family(MetricWeighted, "Blended recency and progress weighted rating."),
		family(MetricTimeBased, "Recency weighted rating."),
		family(MetricUserBased, "Progress weighted rating."),
		family(MetricAverage, "Plain mean rating."),
		family(MetricReviews, "Number of reviews scored."),
		family(MetricBucketMean, "Mean rating inside one bucket."),
	}
	for _, r := range results {
		course := labelPair("course", calculator.CourseLabel(r.Course))
		for i, v := range []float64{r.Weighted, r.TimeBased, r.UserBased, r.Average, float64(r.Reviews)} {
			families[i].Metric = append(families[i].Metric, gauge(v, course))
		}
		for _, ax := range []struct {
			name  string
			stats []models.BucketStat
		}{
			{calculator.AxisTime, r.TimeBuckets},
			{calculator.AxisProgress, r.UserBuckets},
		} {
			for _, st := range ax.stats {
				families[5].Metric = append(families[5].Metric,
					gauge(st.Mean, course, labelPair("axis", ax.name), labelPair("bucket", st.Label)))
			}
		}
	}
	for _, mf := range families {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func family(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func gauge(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

func labelPair(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
