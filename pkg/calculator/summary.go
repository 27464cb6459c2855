package calculator

import (
	"math"
	"sort"
	"time"

	"course-rating/pkg/models"
)

// DefaultReferenceOffsetDays is added to the latest review day when no
// reference date is given.
const DefaultReferenceOffsetDays = 5

// ReferenceFromLatest returns midnight UTC of the latest review day plus
// offsetDays. The zero time is returned for no reviews.
func ReferenceFromLatest(reviews []models.Review, offsetDays int) time.Time {
	latest := latestReview(reviews)
	if latest.IsZero() {
		return time.Time{}
	}
	u := latest.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, offsetDays)
}

func latestReview(reviews []models.Review) time.Time {
	var latest time.Time
	for _, r := range reviews {
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	return latest
}

// Summarize computes the descriptive figures of a review set as of ref.
func Summarize(reviews []models.Review, ref time.Time) models.Summary {
	s := models.Summary{
		Reviews:            len(reviews),
		MeanRating:         Average(reviews),
		MeanEnrollmentDays: math.NaN(),
		LatestReview:       latestReview(reviews),
	}
	if len(reviews) == 0 {
		return s
	}

	dist := map[float64]int{}
	type acc struct {
		n   int
		sum float64
	}
	byQuestions := map[int]*acc{}
	s.MinEnrollmentDays = math.MaxInt
	s.MaxEnrollmentDays = math.MinInt
	var enrollSum float64

	for _, r := range reviews {
		dist[r.Rating]++

		a, ok := byQuestions[r.QuestionsAsked]
		if !ok {
			a = &acc{}
			byQuestions[r.QuestionsAsked] = a
		}
		a.n++
		a.sum += r.Rating

		d := EnrollmentAgeDays(ref, r)
		s.MinEnrollmentDays = min(s.MinEnrollmentDays, d)
		s.MaxEnrollmentDays = max(s.MaxEnrollmentDays, d)
		enrollSum += float64(d)
	}
	s.MeanEnrollmentDays = enrollSum / float64(len(reviews))

	for rating, n := range dist {
		s.Distribution = append(s.Distribution, models.RatingCount{Rating: rating, Count: n})
	}
	sort.Slice(s.Distribution, func(i, j int) bool { return s.Distribution[i].Rating > s.Distribution[j].Rating })

	for k, a := range byQuestions {
		s.ByQuestionsAsked = append(s.ByQuestionsAsked, models.GroupStat{Key: k, Count: a.n, MeanRating: a.sum / float64(a.n)})
	}
	sort.Slice(s.ByQuestionsAsked, func(i, j int) bool { return s.ByQuestionsAsked[i].Key < s.ByQuestionsAsked[j].Key })

	return s
}
