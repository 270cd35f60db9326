// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultWindow is the clock-skew tolerance, in minutes, around an hour boundary.
const DefaultWindow = 5

// BucketLayout is the time.Format layout equivalent of Bucket.String.
const BucketLayout = "2006010215"

// Bucket identifies one hour of UTC time. It is the freshness granularity of
// a signature.
type Bucket struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// BucketOf returns the bucket containing t, evaluated in UTC.
func BucketOf(t time.Time) Bucket {
	u := t.UTC()
	return Bucket{Year: u.Year(), Month: int(u.Month()), Day: u.Day(), Hour: u.Hour()}
}

// ParseBucket decodes a YYYYMMDDHH token and rejects impossible dates.
func ParseBucket(s string) (Bucket, error) {
	if len(s) != 10 {
		return Bucket{}, fmt.Errorf("bucket %q: want 10 digits", s)
	}
	var parts [4]int
	for i, span := range [][2]int{{0, 4}, {4, 6}, {6, 8}, {8, 10}} {
		n, err := strconv.Atoi(s[span[0]:span[1]])
		if err != nil || n < 0 {
			return Bucket{}, fmt.Errorf("bucket %q: not a number", s)
		}
		parts[i] = n
	}
	b := Bucket{Year: parts[0], Month: parts[1], Day: parts[2], Hour: parts[3]}
	if b.Month < 1 || b.Month > 12 || b.Day < 1 || b.Day > DaysIn(b.Year, b.Month) || b.Hour > 23 {
		return Bucket{}, fmt.Errorf("bucket %q: out of range", s)
	}
	return b, nil
}

// String renders the bucket as a fixed-width, zero-padded YYYYMMDDHH token.
func (b Bucket) String() string {
	return fmt.Sprintf("%04d%02d%02d%02d", b.Year, b.Month, b.Day, b.Hour)
}

// Next returns the following hour, rolling over day, month and year.
func (b Bucket) Next() Bucket {
	if b.Hour < 23 {
		b.Hour++
		return b
	}
	b.Year, b.Month, b.Day = nextDay(b.Year, b.Month, b.Day)
	b.Hour = 0
	return b
}

// Prev returns the preceding hour, rolling back day, month and year.
func (b Bucket) Prev() Bucket {
	if b.Hour > 0 {
		b.Hour--
		return b
	}
	b.Year, b.Month, b.Day = prevDay(b.Year, b.Month, b.Day)
	b.Hour = 23
	return b
}

func nextDay(year, month, day int) (int, int, int) {
	if day < DaysIn(year, month) {
		return year, month, day + 1
	}
	if month == 12 {
		return year + 1, 1, 1
	}
	return year, month + 1, 1
}

func prevDay(year, month, day int) (int, int, int) {
	if day > 1 {
		return year, month, day - 1
	}
	if month == 1 {
		return year - 1, 12, 31
	}
	return year, month - 1, DaysIn(year, month-1)
}

// DaysIn returns the number of days in the given month (1-12).
func DaysIn(year, month int) int {
	switch month {
	case 4, 6, 9, 11:
		return 30
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 31
	}
}

// IsLeapYear applies the Gregorian rule: every fourth year, except centuries
// not divisible by 400.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// CandidateBuckets lists the buckets a signature made around now may carry.
//
// The current bucket always comes first. The next hour follows when the
// minute is within window of the top of the hour (minute >= 60-window), and
// the previous hour last when the minute is within window of its start
// (minute <= window). window is clamped to [0, 59]; from 30 upwards both
// neighbors can be present.
func CandidateBuckets(now time.Time, window int) []Bucket {
	switch {
	case window < 0:
		window = 0
	case window > 59:
		window = 59
	}

	current := BucketOf(now)
	minute := now.UTC().Minute()

	candidates := make([]Bucket, 0, 3)
	candidates = append(candidates, current)
	if minute >= 60-window {
		candidates = append(candidates, current.Next())
	}
	if minute <= window {
		candidates = append(candidates, current.Prev())
	}
	return candidates
}
