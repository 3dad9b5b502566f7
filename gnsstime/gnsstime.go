// Package gnsstime reconciles the week-number/time-of-week representations
// used by GPS, Galileo and GLONASS into a single monotonic (week,
// time-of-week) pair, and converts that pair to civil UTC.  The leap-second
// table and the Moscow-time reconciliation algorithm are ported from the
// reference decoder's gnumleap/updatetime functions.
package gnsstime

// LeapSecondEntry records the civil date a new TAI-UTC offset took effect
// at 00:00:00 the following day (the reference comment: "this is the day,
// where 23:59:59 exists 2 times" — the entry names the last day of the old
// offset, not the first day of the new one).
type LeapSecondEntry struct {
	Day, Month, Year int
	TAIOffset        int
}

// GPSLeapStart is the number of leap seconds already in effect at the GPS
// epoch (1980-01-06); gnumleap reports leap seconds relative to this.
const GPSLeapStart = 19

// LeapSeconds is the compiled-in leap-second table.  The entries through
// 2008-12-31 are taken verbatim from the reference decoder; the later three
// extend it to cover present-day streams, using the same TAI-UTC offsets
// published by the IERS.
var LeapSeconds = []LeapSecondEntry{
	{30, 6, 1981, 20},
	{30, 6, 1982, 21},
	{30, 6, 1983, 22},
	{30, 6, 1985, 23},
	{31, 12, 1987, 24},
	{31, 12, 1989, 25},
	{31, 12, 1990, 26},
	{30, 6, 1992, 27},
	{30, 6, 1993, 28},
	{30, 6, 1994, 29},
	{31, 12, 1995, 30},
	{30, 6, 1997, 31},
	{31, 12, 1998, 32},
	{31, 12, 2005, 33},
	{31, 12, 2008, 34},
	{30, 6, 2012, 35},
	{30, 6, 2015, 36},
	{31, 12, 2016, 37},
}

var daysInMonth = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// isLongYear reports whether February of the given year has 29 days (or,
// when month is 0, whether the year as a whole is a leap year).  Ported
// from the reference decoder's longyear().
func isLongYear(year, month int) bool {
	if year%4 == 0 && (year%400 == 0 || year%100 != 0) {
		if month == 0 || month == 2 {
			return true
		}
	}
	return false
}

// GNumLeap returns the number of GPS leap seconds (TAI-UTC offset minus
// GPSLeapStart) in effect on the given civil date.
func GNumLeap(year, month, day int) int {
	leapSeconds := 0
	for _, entry := range LeapSeconds {
		if year < entry.Year {
			break
		}
		if year > entry.Year || month > entry.Month || (month == entry.Month && day > entry.Day) {
			leapSeconds = entry.TAIOffset - GPSLeapStart
		}
	}
	return leapSeconds
}

// UpdateTime reconciles a GLONASS Moscow time-of-day (milliseconds since
// local midnight) against the current (week, secOfWeek) reference clock,
// producing a new (week, secOfWeek) pair in GPS time (or UTC, if fixToUTC
// is set).  It mutates week and secOfWeek in place, mirroring the
// reference decoder's updatetime(); the day-boundary heuristics (the
// "near midnight" checks) exist because a GLONASS tk can be a few seconds
// ahead or behind the parser's own idea of the time.
func UpdateTime(week *int, secOfWeek *int, msOfDayMoscow int, fixToUTC bool) {
	j := int64(*week)*7*24*60*60 + int64(*secOfWeek) + 5*24*60*60 + 3*60*60

	year := 1980
	gloDayNumber := 0
	for {
		longYear := 0
		if isLongYear(year, 0) {
			longYear = 1
		}
		daysThisYear := 365 + longYear
		secondsThisYear := int64(daysThisYear) * 24 * 60 * 60
		if j < secondsThisYear+int64(GNumLeap(year+1, 1, 1)) {
			break
		}
		j -= secondsThisYear
		gloDayNumber += daysThisYear
		year++
	}

	month := 1
	for {
		longYear := 0
		if isLongYear(year, month) {
			longYear = 1
		}
		daysThisMonth := daysInMonth[month] + longYear
		secondsThisMonth := int64(daysThisMonth) * 24 * 60 * 60
		nextMonth := month + 1
		nextYear := year
		if nextMonth > 12 {
			nextMonth = 1
			nextYear++
		}
		if j < secondsThisMonth+int64(GNumLeap(nextYear, nextMonth, 1)) {
			break
		}
		j -= secondsThisMonth
		gloDayNumber += daysThisMonth
		month++
	}

	day := 1
	for {
		nextDay := day + 1
		nextMonth, nextYear := month, year
		if nextDay > daysInMonth[month]+boolToInt(isLongYear(year, month)) {
			nextDay = 1
			nextMonth++
			if nextMonth > 12 {
				nextMonth = 1
				nextYear++
			}
		}
		if j < 24*60*60+int64(GNumLeap(nextYear, nextMonth, nextDay)) {
			break
		}
		j -= 24 * 60 * 60
		day++
	}

	gloDayNumber -= 16*365 + 4 - day
	nul := GNumLeap(year, month, day)
	gloTimeOfDay := int(j) - nul

	if msOfDayMoscow < 5*60*1000 && gloTimeOfDay > 23*60*60 {
		*secOfWeek += 24 * 60 * 60
	} else if gloTimeOfDay < 5*60 && msOfDayMoscow > 23*60*60*1000 {
		*secOfWeek -= 24 * 60 * 60
	}

	*secOfWeek += msOfDayMoscow/1000 - gloTimeOfDay

	if fixToUTC {
		*secOfWeek -= nul
	}

	if *secOfWeek < 0 {
		*secOfWeek += 24 * 60 * 60 * 7
		*week--
	}
	if *secOfWeek >= 24*60*60*7 {
		*secOfWeek -= 24 * 60 * 60 * 7
		*week++
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// CivilTime is a UTC civil date/time, the result of ConvertTime.
type CivilTime struct {
	Year, Month, Day     int
	Hour, Minute, Second int
}

// gpsEpochUnixSeconds is the GPS epoch, 1980-01-06T00:00:00 UTC, in Unix
// time.
const gpsEpochUnixSeconds = 315964800 // 1980-01-06T00:00:00Z in Unix time

// ConvertTime converts a GPS (week, secOfWeek) pair to civil UTC, applying
// the current leap-second offset so the result is genuine UTC rather than
// GPS time.
func ConvertTime(week, secOfWeek int) CivilTime {
	totalSeconds := int64(week)*7*24*60*60 + int64(secOfWeek)
	unixSeconds := gpsEpochUnixSeconds + totalSeconds

	// Apply the leap-second correction iteratively: GNumLeap depends on the
	// civil date we are trying to compute, so converge on it the way the
	// reference decoder's updatetime() does (at most one correction is ever
	// needed since leap seconds change by at most one second at a time).
	civil := civilFromUnix(unixSeconds)
	leap := GNumLeap(civil.Year, civil.Month, civil.Day)
	civil = civilFromUnix(unixSeconds - int64(leap))

	return civil
}

func civilFromUnix(unixSeconds int64) CivilTime {
	secOfDay := unixSeconds % (24 * 60 * 60)
	days := unixSeconds / (24 * 60 * 60)
	if secOfDay < 0 {
		secOfDay += 24 * 60 * 60
		days--
	}

	hour := int(secOfDay / 3600)
	minute := int((secOfDay % 3600) / 60)
	second := int(secOfDay % 60)

	year := 1970
	for {
		longYear := 0
		if isLongYear(year, 0) {
			longYear = 1
		}
		daysThisYear := int64(365 + longYear)
		if days < daysThisYear {
			break
		}
		days -= daysThisYear
		year++
	}

	month := 1
	for {
		longYear := 0
		if isLongYear(year, month) {
			longYear = 1
		}
		daysThisMonth := int64(daysInMonth[month] + longYear)
		if days < daysThisMonth {
			break
		}
		days -= daysThisMonth
		month++
	}

	return CivilTime{
		Year:   year,
		Month:  month,
		Day:    int(days) + 1,
		Hour:   hour,
		Minute: minute,
		Second: second,
	}
}
