// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func bucketStrings(bs []Bucket) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.String())
	}
	return out
}

func TestCandidateBuckets(t *testing.T) {
	Convey("Candidate buckets with the default window", t, func() {
		Convey("roll over day, month and year just before midnight on Jan 31", func() {
			got := bucketStrings(CandidateBuckets(at("2024-01-31T23:58:00Z"), DefaultWindow))
			So(got, ShouldResemble, []string{"2024013123", "2024020100"})
		})

		Convey("reach back into Feb 29 of a leap year", func() {
			got := bucketStrings(CandidateBuckets(at("2024-03-01T00:02:00Z"), DefaultWindow))
			So(got, ShouldResemble, []string{"2024030100", "2024022923"})
		})

		Convey("reach back into Feb 28 of a common year", func() {
			got := bucketStrings(CandidateBuckets(at("2023-03-01T00:02:00Z"), DefaultWindow))
			So(got, ShouldResemble, []string{"2023030100", "2023022823"})
			So(got, ShouldNotContain, "2023022923")
		})

		Convey("roll back over New Year", func() {
			got := bucketStrings(CandidateBuckets(at("2025-01-01T00:00:00Z"), DefaultWindow))
			So(got, ShouldResemble, []string{"2025010100", "2024123123"})
		})

		Convey("hold only the current bucket mid-hour", func() {
			got := bucketStrings(CandidateBuckets(at("2024-06-15T12:30:00Z"), DefaultWindow))
			So(got, ShouldResemble, []string{"2024061512"})
		})

		Convey("include the window edges", func() {
			So(bucketStrings(CandidateBuckets(at("2024-06-15T12:55:00Z"), DefaultWindow)),
				ShouldResemble, []string{"2024061512", "2024061513"})
			So(bucketStrings(CandidateBuckets(at("2024-06-15T12:54:59Z"), DefaultWindow)),
				ShouldResemble, []string{"2024061512"})
			So(bucketStrings(CandidateBuckets(at("2024-06-15T12:05:59Z"), DefaultWindow)),
				ShouldResemble, []string{"2024061512", "2024061511"})
			So(bucketStrings(CandidateBuckets(at("2024-06-15T12:06:00Z"), DefaultWindow)),
				ShouldResemble, []string{"2024061512"})
		})

		Convey("evaluate the clock in UTC", func() {
			zone := time.FixedZone("IST", 5*3600+1800)
			local := at("2024-01-31T23:58:00Z").In(zone)
			So(bucketStrings(CandidateBuckets(local, DefaultWindow)),
				ShouldResemble, []string{"2024013123", "2024020100"})
		})
	})

	Convey("Candidate buckets with wide and degenerate windows", t, func() {
		Convey("hold both neighbors once the window reaches 30 minutes", func() {
			got := bucketStrings(CandidateBuckets(at("2024-06-15T12:30:00Z"), 30))
			So(got, ShouldResemble, []string{"2024061512", "2024061513", "2024061511"})
		})

		Convey("never exceed three buckets", func() {
			for minute := 0; minute < 60; minute++ {
				now := time.Date(2024, 6, 15, 12, minute, 0, 0, time.UTC)
				So(len(CandidateBuckets(now, 59)), ShouldBeLessThanOrEqualTo, 3)
			}
		})

		Convey("clamp negative windows to zero", func() {
			So(bucketStrings(CandidateBuckets(at("2024-06-15T12:59:00Z"), -10)),
				ShouldResemble, []string{"2024061512"})
			So(bucketStrings(CandidateBuckets(at("2024-06-15T12:00:30Z"), -10)),
				ShouldResemble, []string{"2024061512", "2024061511"})
		})
	})
}

func TestBucketArithmetic(t *testing.T) {
	Convey("Gregorian leap years", t, func() {
		So(IsLeapYear(2024), ShouldBeTrue)
		So(IsLeapYear(2000), ShouldBeTrue)
		So(IsLeapYear(2023), ShouldBeFalse)
		So(IsLeapYear(1900), ShouldBeFalse)
		So(IsLeapYear(2100), ShouldBeFalse)
		So(DaysIn(1900, 2), ShouldEqual, 28)
		So(DaysIn(2000, 2), ShouldEqual, 29)
		So(DaysIn(2024, 4), ShouldEqual, 30)
		So(DaysIn(2024, 12), ShouldEqual, 31)
	})

	Convey("Next and Prev cross century boundaries correctly", t, func() {
		So(Bucket{1900, 2, 28, 23}.Next().String(), ShouldEqual, "1900030100")
		So(Bucket{1900, 3, 1, 0}.Prev().String(), ShouldEqual, "1900022823")
		So(Bucket{2000, 2, 28, 23}.Next().String(), ShouldEqual, "2000022900")
		So(Bucket{2024, 12, 31, 23}.Next().String(), ShouldEqual, "2025010100")
		So(Bucket{2024, 5, 1, 0}.Prev().String(), ShouldEqual, "2024043023")
	})

	Convey("Next and Prev agree with time.Time arithmetic hour by hour", t, func() {
		for _, start := range []time.Time{
			time.Date(1899, 12, 1, 0, 0, 0, 0, time.UTC),
			time.Date(1999, 12, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		} {
			end := start.AddDate(2, 2, 0)
			mismatches := 0
			for ts := start; ts.Before(end); ts = ts.Add(time.Hour) {
				b := BucketOf(ts)
				if b.Next() != BucketOf(ts.Add(time.Hour)) || b.Prev() != BucketOf(ts.Add(-time.Hour)) {
					mismatches++
				}
			}
			So(mismatches, ShouldEqual, 0)
		}
	})

	Convey("ParseBucket", t, func() {
		b, err := ParseBucket("2024022923")
		So(err, ShouldBeNil)
		So(b, ShouldResemble, Bucket{2024, 2, 29, 23})
		So(b.String(), ShouldEqual, time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC).Format(BucketLayout))

		for _, bad := range []string{"", "202402292", "2023022923", "2024130100", "2024010124", "20240a0100"} {
			_, err := ParseBucket(bad)
			So(err, ShouldNotBeNil)
		}
	})
}
