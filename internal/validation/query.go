package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/yourorg/kharkivmetro/internal/metro"
)

// MaxQueryRunes bounds free-text station queries.
const MaxQueryRunes = 100

// QueryError is a rejected request parameter.
type QueryError struct {
	Field   string
	Value   string
	Message string
}

func (e *QueryError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s (value: %q)", e.Field, e.Message, e.Value)
}

var validate = validator.New()

// Struct runs the validate tags of v and reports the first failure as a
// QueryError named after the field's query tag.
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &QueryError{
		Field:   strings.ToLower(fe.Field()),
		Value:   fmt.Sprint(fe.Value()),
		Message: tagMessage(fe),
	}
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}

// StationQuery trims s and checks it is a usable station query.
func StationQuery(s, field string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &QueryError{Field: field, Message: "is required"}
	}
	if utf8.RuneCountInString(s) > MaxQueryRunes {
		return "", &QueryError{Field: field, Value: s, Message: fmt.Sprintf("must be at most %d characters", MaxQueryRunes)}
	}
	return s, nil
}

// Language parses s, returning def when s is empty.
func Language(s string, def metro.Language) (metro.Language, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	lang, err := metro.ParseLanguage(s)
	if err != nil {
		return "", &QueryError{Field: "lang", Value: s, Message: "must be ua or en"}
	}
	return lang, nil
}

// DayType parses s. An empty s is returned as "" so the caller can derive
// the day from a date or the clock.
func DayType(s string) (metro.DayType, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	day, err := metro.ParseDayType(s)
	if err != nil {
		return "", &QueryError{Field: "day_type", Value: s, Message: "must be weekday or weekend"}
	}
	return day, nil
}

// Clock parses an "HH:MM" time of day.
func Clock(s string) (metro.TimeOfDay, error) {
	t, err := metro.ParseTimeOfDay(s)
	if err != nil {
		return 0, &QueryError{Field: "time", Value: s, Message: "must be HH:MM between 00:00 and 23:59"}
	}
	return t, nil
}

// Limit parses a result limit, applying def when s is empty and capping at
// max.
func Limit(s string, def, max int) (int, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, &QueryError{Field: "limit", Value: s, Message: "must be a positive integer"}
	}
	if n > max {
		n = max
	}
	return n, nil
}
