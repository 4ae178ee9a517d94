// Package mxid validates and normalizes Mexican personal identifiers (CURP,
// RFC) and interbank account numbers (CLABE).
package mxid

import (
	"regexp"
	"strings"
)

var (
	curpPattern = regexp.MustCompile(`^[A-Z][AEIOUX][A-Z]{2}[0-9]{2}(0[1-9]|1[0-2])(0[1-9]|[12][0-9]|3[01])[HMX](AS|BC|BS|CC|CS|CH|CL|CM|DF|DG|GT|GR|HG|JC|MC|MN|MS|NT|NL|OC|PL|QT|QR|SP|SL|SR|TC|TS|TL|VZ|YN|ZS|NE)[B-DF-HJ-NP-TV-Z]{3}[0-9A-Z][0-9]$`)
	rfcPattern  = regexp.MustCompile(`^[A-ZÑ&]{3,4}[0-9]{2}(0[1-9]|1[0-2])(0[1-9]|[12][0-9]|3[01])[A-Z0-9]{2}[0-9A]$`)
	clabeDigits = regexp.MustCompile(`^[0-9]{18}$`)
)

var clabeWeights = [3]int{3, 7, 1}

// Normalize trims and upper-cases an identifier.
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func ValidCURP(value string) bool {
	return curpPattern.MatchString(Normalize(value))
}

// ValidRFC accepts both 12 (companies) and 13 (individuals) character RFCs.
func ValidRFC(value string) bool {
	return rfcPattern.MatchString(Normalize(value))
}

// ValidCLABE checks the length and the control digit.
func ValidCLABE(value string) bool {
	value = strings.TrimSpace(value)
	if !clabeDigits.MatchString(value) {
		return false
	}
	sum := 0
	for i := 0; i < 17; i++ {
		digit := int(value[i] - '0')
		sum += (digit * clabeWeights[i%3]) % 10
	}
	control := (10 - sum%10) % 10
	return control == int(value[17]-'0')
}
