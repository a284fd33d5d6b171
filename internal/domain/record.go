package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is the canonical unit of measurement: the raw value string exactly
// as received from the instrument, stamped with the UTC time the response
// arrived. Records are immutable once produced.
type Record struct {
	Timestamp time.Time
	Value     string
}

// Line renders the record as stored on disk: UTC unix seconds with
// microsecond precision, a tab, the raw payload, a newline.
func (r Record) Line() string {
	sec := float64(r.Timestamp.UnixMicro()) / 1e6
	return strconv.FormatFloat(sec, 'f', 6, 64) + "\t" + r.Value + "\n"
}

// DayBucket identifies one UTC calendar day of data and is the unit of file
// rotation.
type DayBucket struct {
	Year int
	DOY  int
}

// BucketOf returns the UTC day bucket owning t.
func BucketOf(t time.Time) DayBucket {
	u := t.UTC()
	return DayBucket{Year: u.Year(), DOY: u.YearDay()}
}

// Date returns the bucket's UTC midnight.
func (b DayBucket) Date() time.Time {
	return time.Date(b.Year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, b.DOY-1)
}

// AgeDays returns the whole-day age of the bucket relative to now's UTC day.
// The current day is age 0, yesterday age 1. Buckets carry the year so the
// comparison stays correct across year rollover.
func (b DayBucket) AgeDays(now time.Time) int {
	u := now.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return int(midnight.Sub(b.Date()) / (24 * time.Hour))
}

// stamp is YYYY DOY HH MM, zero-padded.
const stampLen = 11

// Filename builds the data file name for the first record of a bucket:
// <prefix><YYYY><DOY:3><HH><MM>.txt, all components UTC. The hour/minute
// suffix records when the bucket's first record arrived and never changes
// for the lifetime of the file.
func Filename(prefix string, t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%s%04d%03d%02d%02d.txt", prefix, u.Year(), u.YearDay(), u.Hour(), u.Minute())
}

// StampPrefix returns the <prefix><YYYY><DOY:3> portion shared by every
// possible filename of the bucket. After a restart the minute suffix of an
// existing file is unknown; matching on this prefix recovers it.
func StampPrefix(prefix string, b DayBucket) string {
	return fmt.Sprintf("%s%04d%03d", prefix, b.Year, b.DOY)
}

// ParseFilename decodes the day bucket from a data file name. ok is false
// for any name that is not <prefix><11 digits>.txt.
func ParseFilename(prefix, name string) (DayBucket, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".txt") {
		return DayBucket{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".txt")
	if len(stamp) != stampLen {
		return DayBucket{}, false
	}
	for _, c := range stamp {
		if c < '0' || c > '9' {
			return DayBucket{}, false
		}
	}
	year, _ := strconv.Atoi(stamp[:4])
	doy, _ := strconv.Atoi(stamp[4:7])
	if doy < 1 || doy > 366 {
		return DayBucket{}, false
	}
	return DayBucket{Year: year, DOY: doy}, true
}
