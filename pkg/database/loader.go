package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"course-rating/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/stdlib"
)

// DefaultTable is read when no table is given.
const DefaultTable = "CourseReviews"

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Driver names registered by the imported drivers.
const (
	driverMySQL    = "mysql"
	driverPostgres = "pgx"
)

// Open DSN mariadb://, mysql:// or postgres:// → driver name + native DSN.
// Anything else is passed through to the MySQL driver unchanged.
func Open(dsn string) (*sql.DB, string, error) {
	driver, native, err := toDriverDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, native)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, redact(native), nil
}

func toDriverDSN(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if _, err := url.Parse(dsn); err != nil {
			return "", "", fmt.Errorf("parse dsn: %w", err)
		}
		return driverPostgres, dsn, nil
	}
	native, err := toMySQLDSN(dsn)
	if err != nil {
		return "", "", err
	}
	return driverMySQL, native, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplete (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

var passwordRe = regexp.MustCompile(`^([^:/@]+):[^@]*@`)

// redact hides the password of a DSN before it is logged.
func redact(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil && u.Scheme != "" {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
		return u.String()
	}
	return passwordRe.ReplaceAllString(dsn, "$1:xxxxx@")
}

// Loader reads reviews from a SQL table with the columns
// CourseID, Rating, ReviewedAt, EnrolledAt, Progress, QuestionsAsked,
// QuestionsAnswered.
type Loader struct {
	DB      *sql.DB
	Table   string
	Course  string // optional filter on CourseID
	Verbose bool
}

// LoadReviews runs the review query and scans every row.
func (l Loader) LoadReviews(ctx context.Context) ([]models.Review, error) {
	table := l.Table
	if table == "" {
		table = DefaultTable
	}
	q, args, err := buildQuery(placeholderFor(l.DB), table, l.Course)
	if err != nil {
		return nil, err
	}
	if l.Verbose {
		log.Printf("[DEBUG] review query table=%s course=%q", table, l.Course)
	}

	rows, err := l.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var out []models.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if l.Verbose {
		log.Printf("[DEBUG] reviews read=%d", len(out))
	}
	return out, nil
}

type placeholder func(n int) string

func questionMark(int) string   { return "?" }
func dollarNumber(n int) string { return fmt.Sprintf("$%d", n) }

func placeholderFor(db *sql.DB) placeholder {
	if db != nil {
		if _, ok := db.Driver().(*stdlib.Driver); ok {
			return dollarNumber
		}
	}
	return questionMark
}

func buildQuery(ph placeholder, table, course string) (string, []any, error) {
	if !tableNameRe.MatchString(table) {
		return "", nil, fmt.Errorf("invalid table name %q", table)
	}
	q := fmt.Sprintf(`
		SELECT CourseID, Rating, ReviewedAt, EnrolledAt, Progress,
		       COALESCE(QuestionsAsked, 0), COALESCE(QuestionsAnswered, 0)
		FROM %s`, table)
	var args []any
	if course != "" {
		q += " WHERE CourseID = " + ph(1)
		args = append(args, course)
	}
	return q, args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (models.Review, error) {
	var (
		r        models.Review
		course   sql.NullString
		asked    sql.NullInt64
		answered sql.NullInt64
	)
	if err := row.Scan(&course, &r.Rating, &r.Timestamp, &r.Enrolled, &r.Progress, &asked, &answered); err != nil {
		return models.Review{}, fmt.Errorf("scan review: %w", err)
	}
	r.Course = course.String
	r.QuestionsAsked = int(asked.Int64)
	r.QuestionsAnswered = int(answered.Int64)
	r.Timestamp = r.Timestamp.UTC()
	r.Enrolled = r.Enrolled.UTC()
	return r, nil
}
