package models

import (
	"io"
	"time"
)

/*
LOAD → records handed over by the CSV or SQL loaders.
*/

// Review is one course review as read from the source table.
type Review struct {
	Course            string    // empty when the source has no course column
	Rating            float64   // star rating, 1–5 in practice
	Timestamp         time.Time // review submission time
	Enrolled          time.Time // enrollment time of the reviewer
	Progress          float64   // percent of the course completed, 0–100
	QuestionsAsked    int
	QuestionsAnswered int
}

/*
COMPUTE → per-bucket diagnostics and per-course results
*/

// BucketStat holds the ratings that fell into one bucket of a scheme.
type BucketStat struct {
	Label  string  // human readable range, e.g. "(30,90]"
	Weight float64 // weight applied to Mean in the blended sum
	Count  int
	Sum    float64
	Mean   float64 // NaN when Count == 0
}

// CourseResult contains the scores computed for one course.
type CourseResult struct {
	Course      string
	Reviews     int
	Average     float64
	TimeBased   float64
	UserBased   float64
	Weighted    float64
	TimeBuckets []BucketStat
	UserBuckets []BucketStat
}

// GroupStat is the mean rating of a group of reviews sharing one key.
type GroupStat struct {
	Key        int
	Count      int
	MeanRating float64
}

// RatingCount is one line of a rating distribution.
type RatingCount struct {
	Rating float64
	Count  int
}

// Summary gathers the descriptive figures printed before scoring.
type Summary struct {
	Reviews            int
	MeanRating         float64
	Distribution       []RatingCount // descending by rating
	ByQuestionsAsked   []GroupStat   // ascending by questions asked
	MinEnrollmentDays  int
	MaxEnrollmentDays  int
	MeanEnrollmentDays float64
	LatestReview       time.Time
}

/*
CONFIG → global parameters
*/

// Config holds the parameters passed to calculator.Run.
type Config struct {
	Course      string    // only score this course when set
	Reference   time.Time // zero → derived from the latest review
	Verbose     bool      // enables [DEBUG] logs
	ProgressOut io.Writer // progress bar destination, nil disables it
}
