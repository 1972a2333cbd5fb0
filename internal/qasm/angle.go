package qasm

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/HershLalwani/qlower/internal/ops"
)

// ErrAngle is returned for an angle expression that does not evaluate.
var ErrAngle = errors.New("bad angle")

// maxPiDenominator is the largest denominator FormatAngle writes as a
// fraction of pi.
const maxPiDenominator = 8

// ParseAngle evaluates an angle expression: an optional sign followed by
// numbers and pi joined with * and /. A number directly followed by pi
// multiplies it, so "3pi/4" and "3*pi/4" are the same angle.
func ParseAngle(s string) (float64, error) {
	sc := &angleScanner{src: strings.ToLower(s)}
	return sc.expr()
}

// ParseAngles evaluates a comma separated angle list. An empty list gives
// no angles.
func ParseAngles(list string) ([]float64, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	out := make([]float64, 0, len(parts))
	for i, part := range parts {
		v, err := ParseAngle(part)
		if err != nil {
			return nil, errors.Wrapf(err, "angle %d", i+1)
		}
		out = append(out, v)
	}
	return out, nil
}

type angleScanner struct {
	src string
	pos int
}

func (sc *angleScanner) fail(msg string) error {
	return errors.Wrapf(ErrAngle, "%q offset %d: %s", strings.TrimSpace(sc.src), sc.pos, msg)
}

func (sc *angleScanner) peek() byte {
	for sc.pos < len(sc.src) && (sc.src[sc.pos] == ' ' || sc.src[sc.pos] == '\t') {
		sc.pos++
	}
	if sc.pos == len(sc.src) {
		return 0
	}
	return sc.src[sc.pos]
}

func (sc *angleScanner) expr() (float64, error) {
	sign := 1.0
	switch sc.peek() {
	case '-':
		sign = -1
		sc.pos++
	case '+':
		sc.pos++
	}
	v, err := sc.factor()
	if err != nil {
		return 0, err
	}
	for {
		switch c := sc.peek(); c {
		case 0:
			return sign * v, nil
		case '*', '/':
			sc.pos++
			at := sc.pos
			f, err := sc.factor()
			if err != nil {
				return 0, err
			}
			if c == '*' {
				v *= f
				continue
			}
			if f == 0 {
				sc.pos = at
				return 0, sc.fail("division by zero")
			}
			v /= f
		default:
			return 0, sc.fail("unexpected " + strconv.QuoteRune(rune(c)))
		}
	}
}

// factor reads a number, pi, or a number immediately followed by pi.
func (sc *angleScanner) factor() (float64, error) {
	sc.peek()
	if sc.takePi() {
		return math.Pi, nil
	}
	start := sc.pos
	sc.pos = numberEnd(sc.src, start)
	if sc.pos == start {
		return 0, sc.fail("expected a number or pi")
	}
	v, err := strconv.ParseFloat(sc.src[start:sc.pos], 64)
	if err != nil {
		sc.pos = start
		return 0, sc.fail("bad number")
	}
	if sc.takePi() {
		v *= math.Pi
	}
	return v, nil
}

func (sc *angleScanner) takePi() bool {
	if strings.HasPrefix(sc.src[sc.pos:], "pi") {
		sc.pos += 2
		return true
	}
	return false
}

// numberEnd returns the end of the decimal literal starting at i.
func numberEnd(s string, i int) int {
	start := i
	for i < len(s) {
		switch c := s[i]; {
		case c >= '0' && c <= '9', c == '.':
		case c == 'e' && i > start:
			if i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-') {
				i++
			}
		default:
			return i
		}
		i++
	}
	return i
}

// FormatAngle writes multiples of pi with a small denominator in pi
// notation and anything else as a plain number.
func FormatAngle(val float64) string {
	if math.Abs(val) < ops.Tolerance {
		return "0"
	}
	for d := 1; d <= maxPiDenominator; d++ {
		n := math.Round(val * float64(d) / math.Pi)
		if n != 0 && math.Abs(val-n*math.Pi/float64(d)) < ops.Tolerance {
			return piFraction(int(n), d)
		}
	}
	return strconv.FormatFloat(val, 'g', -1, 64)
}

func piFraction(n, d int) string {
	var sb strings.Builder
	if n < 0 {
		sb.WriteByte('-')
		n = -n
	}
	if n != 1 {
		sb.WriteString(strconv.Itoa(n))
		sb.WriteByte('*')
	}
	sb.WriteString("pi")
	if d != 1 {
		sb.WriteByte('/')
		sb.WriteString(strconv.Itoa(d))
	}
	return sb.String()
}

// signedAngle maps a normalized gate angle into (-period/2, period/2].
func signedAngle(g ops.Gate) float64 {
	a := g.Angle()
	if p := g.Kind().Period(); a > p/2+ops.Tolerance {
		a -= p
	}
	return a
}
