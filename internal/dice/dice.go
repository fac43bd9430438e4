// Package dice parses and rolls tabletop dice expressions such as "2d6" or
// "1d20+5".
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// ErrMalformedExpression is returned when a dice expression does not match
// <count>d<sides>[(+|-)<modifier>].
var ErrMalformedExpression = errors.New("malformed dice expression")

// Upper bounds on a single expression.
const (
	MaxCount    = 100
	MaxSides    = 1000
	MaxModifier = 10000
)

// Intner is the random source used for rolling. *rand.Rand satisfies it.
type Intner interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// Expression is a parsed dice expression.
type Expression struct {
	Count    int
	Sides    int
	Modifier int
}

// Result is the outcome of rolling an Expression.
type Result struct {
	Notation string `json:"notation"`
	Rolls    []int  `json:"rolls"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
}

// String renders the expression in canonical form.
func (e Expression) String() string {
	switch {
	case e.Modifier > 0:
		return fmt.Sprintf("%dd%d+%d", e.Count, e.Sides, e.Modifier)
	case e.Modifier < 0:
		return fmt.Sprintf("%dd%d-%d", e.Count, e.Sides, -e.Modifier)
	default:
		return fmt.Sprintf("%dd%d", e.Count, e.Sides)
	}
}

// Parse parses a dice expression. Whitespace is ignored and the "d" is case
// insensitive. An omitted count means one die. Count, sides and modifier
// beyond MaxCount, MaxSides and MaxModifier are rejected.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.Join(strings.Fields(expr), ""))
	countPart, rest, ok := strings.Cut(s, "d")
	if !ok {
		return Expression{}, fmt.Errorf("%w: %q has no d separator", ErrMalformedExpression, expr)
	}

	count := 1
	if countPart != "" {
		n, err := strconv.Atoi(countPart)
		if err != nil || n <= 0 || n > MaxCount {
			return Expression{}, fmt.Errorf("%w: invalid count in %q", ErrMalformedExpression, expr)
		}
		count = n
	}

	sidesPart, modPart, sign := rest, "", 0
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		sidesPart, modPart = rest[:i], rest[i+1:]
		sign = 1
		if rest[i] == '-' {
			sign = -1
		}
	}

	sides, err := strconv.Atoi(sidesPart)
	if err != nil || sides <= 0 || sides > MaxSides {
		return Expression{}, fmt.Errorf("%w: invalid sides in %q", ErrMalformedExpression, expr)
	}

	modifier := 0
	if sign != 0 {
		m, err := strconv.Atoi(modPart)
		if err != nil || m < 0 || m > MaxModifier {
			return Expression{}, fmt.Errorf("%w: invalid modifier in %q", ErrMalformedExpression, expr)
		}
		modifier = sign * m
	}

	return Expression{Count: count, Sides: sides, Modifier: modifier}, nil
}

// Roll rolls every die of the expression using rng.
func (e Expression) Roll(rng Intner) Result {
	rolls := make([]int, e.Count)
	total := e.Modifier
	for i := range rolls {
		rolls[i] = rng.Intn(e.Sides) + 1
		total += rolls[i]
	}
	return Result{
		Notation: e.String(),
		Rolls:    rolls,
		Modifier: e.Modifier,
		Total:    total,
	}
}

// Roll parses expr and rolls it. On error no dice are rolled.
func Roll(rng Intner, expr string) (Result, error) {
	e, err := Parse(expr)
	if err != nil {
		return Result{}, err
	}
	res := e.Roll(rng)
	res.Notation = expr
	return res, nil
}

// Between returns a uniformly random value in [lo, hi].
func Between(rng Intner, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// NewSource returns a pseudo-random source seeded from crypto/rand.
func NewSource() (*rand.Rand, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(b[:])))), nil
}
