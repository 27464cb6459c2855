package calculator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"course-rating/pkg/models"
)

// Weights are the four bucket weights of a scheme, lowest bucket first.
// They need not sum to 1.
type Weights [4]float64

var (
	// DefaultTimeWeights favour recent reviews.
	DefaultTimeWeights = Weights{.28, .26, .24, .22}
	// DefaultUserWeights favour reviewers who went further in the course.
	DefaultUserWeights = Weights{.22, .24, .26, .28}
)

const (
	DefaultTimeShare = .5
	DefaultUserShare = .5
)

// Axis names used in bucket errors and reports.
const (
	AxisTime     = "time"
	AxisProgress = "progress"
)

var (
	// ErrEmptyBucket is matched by *EmptyBucketError.
	ErrEmptyBucket = errors.New("calculator: empty bucket")
	// ErrNoReviews is returned when no bucket holds a single review.
	ErrNoReviews = errors.New("calculator: no reviews")
	// ErrZeroWeight is returned under Reweight when every populated bucket
	// has weight 0, so there is nothing to rescale by.
	ErrZeroWeight = errors.New("calculator: populated buckets have zero weight")
)

// EmptyBucketError reports the first empty bucket met under FailOnEmpty.
type EmptyBucketError struct {
	Axis  string
	Label string
}

func (e *EmptyBucketError) Error() string {
	return fmt.Sprintf("calculator: empty %s bucket %s", e.Axis, e.Label)
}

func (e *EmptyBucketError) Is(target error) bool { return target == ErrEmptyBucket }

// ZeroWeightError names the axis whose populated buckets all weigh 0.
type ZeroWeightError struct {
	Axis string
}

func (e *ZeroWeightError) Error() string {
	return fmt.Sprintf("calculator: populated %s buckets have zero weight", e.Axis)
}

func (e *ZeroWeightError) Is(target error) bool { return target == ErrZeroWeight }

// EmptyBucketPolicy decides what an empty bucket does to a weighted sum.
type EmptyBucketPolicy int

const (
	// PropagateNaN gives the empty bucket a NaN mean, which makes the sum NaN.
	PropagateNaN EmptyBucketPolicy = iota
	// Reweight drops empty buckets and rescales the populated terms by
	// Σw(all) / Σw(populated).
	Reweight
	// FailOnEmpty returns an *EmptyBucketError.
	FailOnEmpty
)

var policyNames = map[EmptyBucketPolicy]string{
	PropagateNaN: "nan",
	Reweight:     "reweight",
	FailOnEmpty:  "fail",
}

func (p EmptyBucketPolicy) String() string {
	if n, ok := policyNames[p]; ok {
		return n
	}
	return fmt.Sprintf("EmptyBucketPolicy(%d)", int(p))
}

// ParsePolicy maps "nan", "reweight" or "fail" to a policy.
func ParsePolicy(name string) (EmptyBucketPolicy, error) {
	for p, n := range policyNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown empty bucket policy %q: want nan|reweight|fail", name)
}

// Bucket selects values in (Min, Max]. The first bucket of a scheme uses
// Min = -Inf and the last Max = +Inf so the scheme covers every value.
type Bucket struct {
	Label  string
	Min    float64
	Max    float64
	Weight float64
}

func (b Bucket) contains(v float64) bool { return v > b.Min && v <= b.Max }

// Scheme is an ordered, gap-free list of buckets over one axis.
type Scheme struct {
	Axis    string
	Buckets []Bucket
}

// NewScheme builds a scheme from the inner boundaries (ascending) and one
// weight per resulting bucket.
func NewScheme(axis string, bounds []float64, weights []float64) Scheme {
	if len(weights) != len(bounds)+1 {
		panic(fmt.Sprintf("calculator: %d bounds need %d weights, got %d", len(bounds), len(bounds)+1, len(weights)))
	}
	s := Scheme{Axis: axis, Buckets: make([]Bucket, 0, len(weights))}
	lo := math.Inf(-1)
	for i, w := range weights {
		hi := math.Inf(1)
		if i < len(bounds) {
			hi = bounds[i]
		}
		s.Buckets = append(s.Buckets, Bucket{Label: bucketLabel(lo, hi), Min: lo, Max: hi, Weight: w})
		lo = hi
	}
	return s
}

func bucketLabel(lo, hi float64) string {
	switch {
	case math.IsInf(lo, -1):
		return fmt.Sprintf("<=%g", hi)
	case math.IsInf(hi, 1):
		return fmt.Sprintf(">%g", lo)
	default:
		return fmt.Sprintf("(%g,%g]", lo, hi)
	}
}

// TimeScheme buckets review age in days: <=30, (30,90], (90,180], >180.
func TimeScheme(w Weights) Scheme {
	return NewScheme(AxisTime, []float64{30, 90, 180}, w[:])
}

// ProgressScheme buckets course progress: <=10, (10,45], (45,75], >75.
func ProgressScheme(w Weights) Scheme {
	return NewScheme(AxisProgress, []float64{10, 45, 75}, w[:])
}

// Index returns the bucket holding v, or -1 for NaN.
func (s Scheme) Index(v float64) int {
	for i, b := range s.Buckets {
		if b.contains(v) {
			return i
		}
	}
	return -1
}

// Stats partitions reviews by key and returns the rating stats per bucket.
func (s Scheme) Stats(reviews []models.Review, key func(models.Review) float64) []models.BucketStat {
	stats := make([]models.BucketStat, len(s.Buckets))
	for i, b := range s.Buckets {
		stats[i] = models.BucketStat{Label: b.Label, Weight: b.Weight}
	}
	for _, r := range reviews {
		i := s.Index(key(r))
		if i < 0 {
			continue
		}
		stats[i].Count++
		stats[i].Sum += r.Rating
	}
	for i := range stats {
		stats[i].Mean = math.NaN()
		if stats[i].Count > 0 {
			stats[i].Mean = stats[i].Sum / float64(stats[i].Count)
		}
	}
	return stats
}

// Combine folds bucket stats into a weighted sum under the given policy.
func Combine(axis string, stats []models.BucketStat, policy EmptyBucketPolicy) (float64, error) {
	var sum, wAll, wUsed float64
	populated := 0
	for _, st := range stats {
		wAll += st.Weight
		if st.Count == 0 {
			switch policy {
			case FailOnEmpty:
				return math.NaN(), &EmptyBucketError{Axis: axis, Label: st.Label}
			case PropagateNaN:
				sum += st.Weight * math.NaN()
			}
			continue
		}
		sum += st.Weight * st.Mean
		wUsed += st.Weight
		populated++
	}
	if policy != Reweight {
		return sum, nil
	}
	if populated == 0 {
		return math.NaN(), ErrNoReviews
	}
	if wUsed == 0 {
		return math.NaN(), &ZeroWeightError{Axis: axis}
	}
	return sum * wAll / wUsed, nil
}

// AgeDays is the whole number of days from t to ref, floored like a
// timedelta's day component.
func AgeDays(ref, t time.Time) int {
	return int(math.Floor(ref.Sub(t).Hours() / 24))
}

// EnrollmentAgeDays is how long the reviewer has been enrolled at ref.
func EnrollmentAgeDays(ref time.Time, r models.Review) int {
	return AgeDays(ref, r.Enrolled)
}

// Average is the plain mean rating, NaN for no reviews.
func Average(reviews []models.Review) float64 {
	if len(reviews) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Rating
	}
	return sum / float64(len(reviews))
}

// Aggregator blends a recency-weighted and a progress-weighted average.
// The zero value is not useful; start from DefaultAggregator.
type Aggregator struct {
	TimeWeights Weights
	UserWeights Weights
	TimeShare   float64
	UserShare   float64
	Policy      EmptyBucketPolicy
}

// DefaultAggregator uses the default weights, equal shares and Reweight.
func DefaultAggregator() Aggregator {
	return Aggregator{
		TimeWeights: DefaultTimeWeights,
		UserWeights: DefaultUserWeights,
		TimeShare:   DefaultTimeShare,
		UserShare:   DefaultUserShare,
		Policy:      Reweight,
	}
}

// TimeBuckets returns the age buckets of reviews as of ref.
func (a Aggregator) TimeBuckets(reviews []models.Review, ref time.Time) []models.BucketStat {
	return TimeScheme(a.TimeWeights).Stats(reviews, func(r models.Review) float64 {
		return float64(AgeDays(ref, r.Timestamp))
	})
}

// UserBuckets returns the progress buckets of reviews.
func (a Aggregator) UserBuckets(reviews []models.Review) []models.BucketStat {
	return ProgressScheme(a.UserWeights).Stats(reviews, func(r models.Review) float64 {
		return r.Progress
	})
}

// TimeBased is the recency-weighted average rating as of ref.
func (a Aggregator) TimeBased(reviews []models.Review, ref time.Time) (float64, error) {
	return Combine(AxisTime, a.TimeBuckets(reviews, ref), a.Policy)
}

// UserBased is the progress-weighted average rating.
func (a Aggregator) UserBased(reviews []models.Review) (float64, error) {
	return Combine(AxisProgress, a.UserBuckets(reviews), a.Policy)
}

// Weighted is TimeShare*TimeBased + UserShare*UserBased.
func (a Aggregator) Weighted(reviews []models.Review, ref time.Time) (float64, error) {
	tb, err := a.TimeBased(reviews, ref)
	if err != nil {
		return math.NaN(), err
	}
	ub, err := a.UserBased(reviews)
	if err != nil {
		return math.NaN(), err
	}
	return a.TimeShare*tb + a.UserShare*ub, nil
}

// Score computes every figure of a CourseResult in one pass over the buckets.
func (a Aggregator) Score(course string, reviews []models.Review, ref time.Time) (models.CourseResult, error) {
	res := models.CourseResult{
		Course:      course,
		Reviews:     len(reviews),
		Average:     Average(reviews),
		TimeBuckets: a.TimeBuckets(reviews, ref),
		UserBuckets: a.UserBuckets(reviews),
	}
	var err error
	if res.TimeBased, err = Combine(AxisTime, res.TimeBuckets, a.Policy); err != nil {
		return res, err
	}
	if res.UserBased, err = Combine(AxisProgress, res.UserBuckets, a.Policy); err != nil {
		return res, err
	}
	res.Weighted = a.TimeShare*res.TimeBased + a.UserShare*res.UserBased
	return res, nil
}

// TimeBasedWeightedAverage uses w over the age buckets, Reweight policy.
func TimeBasedWeightedAverage(reviews []models.Review, ref time.Time, w Weights) (float64, error) {
	a := DefaultAggregator()
	a.TimeWeights = w
	return a.TimeBased(reviews, ref)
}

// UserBasedWeightedAverage uses w over the progress buckets, Reweight policy.
func UserBasedWeightedAverage(reviews []models.Review, w Weights) (float64, error) {
	a := DefaultAggregator()
	a.UserWeights = w
	return a.UserBased(reviews)
}

// WeightedRating blends both averages, each with its default bucket weights.
func WeightedRating(reviews []models.Review, ref time.Time, timeShare, userShare float64) (float64, error) {
	a := DefaultAggregator()
	a.TimeShare, a.UserShare = timeShare, userShare
	return a.Weighted(reviews, ref)
}
