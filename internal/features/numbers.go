package features

import (
	"errors"
	"strings"
)

var errWordConversion = errors.New("not a number word")

var units = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var tens = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// wordToNumber converts a spelled-out number such as "seven" or "twenty-five".
func wordToNumber(word string) (int, error) {
	word = strings.TrimSpace(word)
	if n, ok := units[word]; ok {
		return n, nil
	}
	if n, ok := tens[word]; ok {
		return n, nil
	}

	head, tail, found := strings.Cut(word, "-")
	if !found {
		return 0, errWordConversion
	}

	t, ok := tens[head]
	if !ok {
		return 0, errWordConversion
	}
	u, ok := units[tail]
	if !ok || u == 0 || u > 9 {
		return 0, errWordConversion
	}

	return t + u, nil
}
