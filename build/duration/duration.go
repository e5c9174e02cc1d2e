// Package duration computes exact note and measure durations. Durations are
// rational numbers of whole notes.
package duration

import (
	"fmt"
	"math/big"
	"strconv"

	"moria.us/lymei/build/mei"
	"moria.us/lymei/build/tables"
)

// quarterIndex is the position of "4" in tables.Durations.
const quarterIndex = 4

// Of returns the length of a duration token with the given number of dots.
// The undotted value is 2^(2-i), where i is the token's position in
// tables.Durations, and each dot adds half of the previous addition.
func Of(token string, dots int) (*big.Rat, error) {
	i := tables.DurationIndex(token)
	if i == -1 {
		return nil, fmt.Errorf("unknown duration: %q", token)
	}
	if dots < 0 {
		return nil, fmt.Errorf("negative dot count: %d", dots)
	}
	base := new(big.Rat)
	if e := 2 - i; e >= 0 {
		base.SetInt64(1 << uint(e))
	} else {
		base.SetFrac(big.NewInt(1), new(big.Int).Lsh(big.NewInt(1), uint(-e)))
	}
	// base * (2^(n+1) - 1) / 2^n
	num := new(big.Int).Lsh(big.NewInt(1), uint(dots+1))
	num.Sub(num, big.NewInt(1))
	den := new(big.Int).Lsh(big.NewInt(1), uint(dots))
	return base.Mul(base, new(big.Rat).SetFrac(num, den)), nil
}

// ShorterThanQuarter returns true if the token is a known duration shorter
// than a quarter note, not counting dots.
func ShorterThanQuarter(token string) bool {
	return tables.DurationIndex(token) > quarterIndex
}

// TimeSignature returns the meter of a staff definition. A staff with no
// meter is in 4/4.
func TimeSignature(sd *mei.StaffDef) (count, unit int, err error) {
	if sd == nil || (sd.MeterCount == "" && sd.MeterUnit == "") {
		return 4, 4, nil
	}
	count, err = strconv.Atoi(sd.MeterCount)
	if err != nil || count <= 0 {
		return 0, 0, fmt.Errorf("invalid meter count: %q", sd.MeterCount)
	}
	unit, err = strconv.Atoi(sd.MeterUnit)
	if err != nil || unit <= 0 {
		return 0, 0, fmt.Errorf("invalid meter unit: %q", sd.MeterUnit)
	}
	return count, unit, nil
}

// Measure returns the length of one measure of a staff.
func Measure(sd *mei.StaffDef) (*big.Rat, error) {
	count, unit, err := TimeSignature(sd)
	if err != nil {
		return nil, err
	}
	return big.NewRat(int64(count), int64(unit)), nil
}

// IsCompound returns true for compound meters, such as 6/8 and 12/8, whose
// beats are dotted.
func IsCompound(count int) bool {
	return count > 3 && count%3 == 0
}

// Beat returns the length of one beat of a staff. Simple meters beat once per
// denominator unit and compound meters once per three units.
func Beat(sd *mei.StaffDef) (*big.Rat, error) {
	count, unit, err := TimeSignature(sd)
	if err != nil {
		return nil, err
	}
	if IsCompound(count) {
		return big.NewRat(3, int64(unit)), nil
	}
	return big.NewRat(1, int64(unit)), nil
}
