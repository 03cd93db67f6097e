package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const dateOnlyLayout = "2006-01-02"

func parseSnowflakeParam(value string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid_id")
	}
	return parsed, nil
}

func parseIntParam(value string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.New("invalid_number")
	}
	return parsed, nil
}

func parseOptionalLimit(value string, def int) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid_limit")
	}
	return parsed, nil
}

// parseTimeRange accepts RFC3339 or date-only bounds; the upper bound is
// half-open. Empty values mean unbounded.
func parseTimeRange(fromValue, toValue string) (time.Time, time.Time, error) {
	var from, to time.Time

	if trimmed := strings.TrimSpace(fromValue); trimmed != "" {
		parsed, err := parseTimeValue(trimmed)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if trimmed := strings.TrimSpace(toValue); trimmed != "" {
		parsed, err := parseTimeValue(trimmed)
		if err != nil {
			return from, to, err
		}
		to = parsed
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, errors.New("invalid_time_range")
	}
	return from, to, nil
}

func parseTimeValue(value string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC(), nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, value); err == nil {
		return parsed.UTC(), nil
	}
	return time.Time{}, errors.New("invalid_time")
}
