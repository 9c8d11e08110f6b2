package jobs

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxAgeDays is used when a request does not carry a positive recency window.
const DefaultMaxAgeDays = 15

// MaxAgeDaysLimit caps every recency window. No portal filters further back
// than a year, and the cap keeps minute and second conversions in range.
const MaxAgeDaysLimit = 365

// ErrInvalidRequest is the only error the engine returns to callers.
var ErrInvalidRequest = errors.New("invalid search request")

// Request is the caller-facing search input.
type Request struct {
	JobTitle   string `json:"job_title" validate:"required"`
	City       string `json:"city" validate:"required_without=Country"`
	Country    string `json:"country" validate:"required_without=City"`
	MaxAgeDays int    `json:"job_age"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Query trims, validates, and defaults the request. Non-positive MaxAgeDays
// falls back to defaultAge (or DefaultMaxAgeDays when defaultAge is not
// positive); the result is capped at MaxAgeDaysLimit.
func (r Request) Query(defaultAge int) (Query, error) {
	trimmed := Request{
		JobTitle:   strings.TrimSpace(r.JobTitle),
		City:       strings.TrimSpace(r.City),
		Country:    strings.TrimSpace(r.Country),
		MaxAgeDays: r.MaxAgeDays,
	}
	if err := requestValidator().Struct(trimmed); err != nil {
		return Query{}, fmt.Errorf("%w: %s", ErrInvalidRequest, describeValidation(err))
	}
	age := trimmed.MaxAgeDays
	if age <= 0 {
		age = defaultAge
	}
	if age <= 0 {
		age = DefaultMaxAgeDays
	}
	age = min(age, MaxAgeDaysLimit)
	return Query{
		Title:      trimmed.JobTitle,
		City:       trimmed.City,
		Country:    trimmed.Country,
		MaxAgeDays: age,
	}, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	titleReported := false
	locationReported := false
	for _, fe := range verrs {
		switch fe.Field() {
		case "JobTitle":
			if !titleReported {
				msgs = append(msgs, "job_title is required")
				titleReported = true
			}
		case "City", "Country":
			if !locationReported {
				msgs = append(msgs, "city or country is required")
				locationReported = true
			}
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
