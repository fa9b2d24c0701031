package solar

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// GOES class letters in ascending order of intensity.
var classLetters = []byte{'A', 'B', 'C', 'M', 'X'}

// classRank is the rank base of each letter. Rank = base + magnitude lets two
// classes be compared with a single float.
var classRank = map[byte]float64{
	'A': 10,
	'B': 20,
	'C': 30,
	'M': 40,
	'X': 50,
}

// classFlux is the 1-8 Angstrom peak flux (W/m^2) of magnitude 1.0 per letter.
var classFlux = map[byte]float64{
	'A': 1e-8,
	'B': 1e-7,
	'C': 1e-6,
	'M': 1e-5,
	'X': 1e-4,
}

// GOESClass is a flare class such as "M1.2". The zero value means unknown.
type GOESClass struct {
	Letter    byte
	Magnitude float64
}

// ParseGOESClass parses "M1.2", "x10", "C" (magnitude 1) or "" (unknown).
func ParseGOESClass(s string) (GOESClass, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == "NAN" {
		return GOESClass{}, nil
	}

	letter := s[0]
	if _, ok := classRank[letter]; !ok {
		return GOESClass{}, errors.Errorf("invalid GOES class letter in %q", s)
	}

	mag := 1.0
	if rest := strings.TrimSpace(s[1:]); rest != "" {
		v, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return GOESClass{}, errors.Wrapf(err, "invalid GOES magnitude in %q", s)
		}
		if v < 0 {
			return GOESClass{}, errors.Errorf("negative GOES magnitude in %q", s)
		}
		mag = v
	}
	return GOESClass{Letter: letter, Magnitude: mag}, nil
}

// MustParseGOESClass is ParseGOESClass for constants; it panics on bad input.
func MustParseGOESClass(s string) GOESClass {
	c, err := ParseGOESClass(s)
	if err != nil {
		panic(err)
	}
	return c
}

// IsZero reports whether the class is unknown.
func (c GOESClass) IsZero() bool {
	return c.Letter == 0
}

// String formats the class with one decimal, e.g. "M1.2", "X10.0".
func (c GOESClass) String() string {
	if c.IsZero() {
		return ""
	}
	return string(c.Letter) + strconv.FormatFloat(round1(c.Magnitude), 'f', 1, 64)
}

// Rank returns the letter base plus magnitude, or 0 for an unknown class.
func (c GOESClass) Rank() float64 {
	if c.IsZero() {
		return 0
	}
	return classRank[c.Letter] + c.Magnitude
}

// Flux returns the peak X-ray flux in W/m^2, or 0 for an unknown class.
func (c GOESClass) Flux() float64 {
	if c.IsZero() {
		return 0
	}
	return classFlux[c.Letter] * c.Magnitude
}

// ClassFromRank inverts Rank: the letter is the highest one whose base is
// strictly below rank, the magnitude is the remainder rounded to one decimal.
// A rank at or below the A base decodes to the unknown class.
func ClassFromRank(rank float64) GOESClass {
	var letter byte
	for _, l := range classLetters {
		if rank-classRank[l] > 0 {
			letter = l
		} else {
			break
		}
	}
	if letter == 0 {
		return GOESClass{}
	}
	return GOESClass{Letter: letter, Magnitude: round1(rank - classRank[letter])}
}

// MaxClass returns the class with the larger rank.
func MaxClass(a, b GOESClass) GOESClass {
	return ClassFromRank(math.Max(a.Rank(), b.Rank()))
}

// Compare orders classes by peak flux.
func (c GOESClass) Compare(other GOESClass) int {
	switch fa, fb := c.Flux(), other.Flux(); {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

// LetterString returns the class letter alone, "" when unknown.
func (c GOESClass) LetterString() string {
	if c.IsZero() {
		return ""
	}
	return string(c.Letter)
}

// Letters returns the class letters in ascending order.
func Letters() []string {
	out := make([]string, len(classLetters))
	for i, l := range classLetters {
		out[i] = string(l)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
