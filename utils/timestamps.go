// utils/timestamps.go
package utils

import "strconv"

// secondsMaxDigits is the digit count of epoch seconds until the year 2286.
const secondsMaxDigits = 10

// ToMillis normalises an epoch timestamp to milliseconds. Values with at most
// ten digits are taken to be seconds.
func ToMillis(ts int64) int64 {
	if ts <= 0 {
		return 0
	}
	if len(strconv.FormatInt(ts, 10)) <= secondsMaxDigits {
		return ts * 1000
	}
	return ts
}
