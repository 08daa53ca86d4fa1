package common

import (
	"fmt"
	"strings"
	"time"

	"megafacil/models"
)

// Embed colors
const (
	ColorPrimary = 0x2ecc71
	ColorWarning = 0xf1c40f
	ColorDanger  = 0xe74c3c
)

// FormatCredits formats a credit amount with thousand separators
func FormatCredits(credits int64) string {
	str := fmt.Sprintf("%d", credits)
	sign := ""
	if strings.HasPrefix(str, "-") {
		sign, str = "-", str[1:]
	}

	n := len(str)
	if n <= 3 {
		return sign + str
	}

	var result strings.Builder
	result.WriteString(sign)
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// FormatSignedCredits formats a delta with an explicit sign
func FormatSignedCredits(delta int64) string {
	if delta > 0 {
		return "+" + FormatCredits(delta)
	}
	return FormatCredits(delta)
}

// FormatCombination renders the six numbers zero padded followed by the score
func FormatCombination(combo models.Combination) string {
	numbers := make([]string, len(combo.Numbers))
	for i, n := range combo.Numbers {
		numbers[i] = fmt.Sprintf("%02d", n)
	}
	return fmt.Sprintf("`%s` · %.2f%%", strings.Join(numbers, " "), combo.Score)
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in user's local timezone
// Format types: "t" = short time, "T" = long time, "d" = short date, "D" = long date,
// "f" = short date/time, "F" = long date/time, "R" = relative time
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}
