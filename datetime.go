package mailmsg

import "time"

// rfc5322DateLayout formats a time.Time per RFC 5322 §3.3, e.g.
// "Tue, 1 Jul 2003 10:52:37 +0200". Go's reference layout already encodes
// day-of-week and zone offset correctly for the full range of times
// time.Time can represent (years 1 through 9999 and beyond), so this
// package uses time.Time.Format directly rather than a hand-rolled
// Zeller's-congruence weekday calculation: the stdlib's weekday math is
// already correct and there is no ecosystem library in the retrieved
// corpus that does this any better.
const rfc5322DateLayout = "Mon, 2 Jan 2006 15:04:05 -0700"

func formatDateTime(t time.Time) string {
	return t.Format(rfc5322DateLayout)
}
