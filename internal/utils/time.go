package utils

import (
	"strings"
	"time"
)

const (
	reqDtmLayout = "2006/01/02 15:04:05"
	dmyLayout    = "02/01/2006"
	stampLayout  = "20060102"
)

// ReqDtm formats a timestamp the way the PTM API expects in reqDtm
// headers and payload fields.
func ReqDtm(t time.Time) string {
	return t.Format(reqDtmLayout)
}

// FormatDateDMY renders a day/month/year date for the allTickets
// lookback window.
func FormatDateDMY(t time.Time) string {
	return t.Format(dmyLayout)
}

// ParseDateDMY parses a "dd/mm/yyyy" date as returned in ticket
// details. A trailing time component ("01/12/2024 14:30") is ignored.
func ParseDateDMY(s string) (time.Time, error) {
	if idx := strings.IndexByte(s, ' '); idx >= 0 {
		s = s[:idx]
	}
	return time.Parse(dmyLayout, s)
}

// DateStamp renders the compact yyyymmdd form used in image filenames.
func DateStamp(t time.Time) string {
	return t.Format(stampLayout)
}
