package generator

import (
	"math"
	"math/big"
	"strconv"
)

// LimitDenominator returns the fraction num/den closest to v with
// 1 <= den <= maxDen, computed from the exact binary value of v by continued
// fractions. ok is false for non-finite v, maxDen < 1, or results that do not
// fit in int64.
func LimitDenominator(v float64, maxDen int64) (num, den int64, ok bool) {
	if math.IsInf(v, 0) || math.IsNaN(v) || maxDen < 1 {
		return 0, 0, false
	}
	exact := new(big.Rat)
	exact.SetFloat64(v)
	n := new(big.Int).Set(exact.Num())
	d := new(big.Int).Set(exact.Denom())
	limit := big.NewInt(maxDen)

	if d.Cmp(limit) <= 0 {
		return toInt64(n, d)
	}

	origDen := new(big.Int).Set(d)
	p0, q0 := big.NewInt(0), big.NewInt(1)
	p1, q1 := big.NewInt(1), big.NewInt(0)
	a, q2, t := new(big.Int), new(big.Int), new(big.Int)
	for {
		a.Div(n, d) // floor, d > 0
		q2.Mul(a, q1).Add(q2, q0)
		if q2.Cmp(limit) > 0 {
			break
		}
		np1 := new(big.Int).Mul(a, p1)
		np1.Add(np1, p0)
		p0, q0, p1, q1 = p1, q1, np1, new(big.Int).Set(q2)
		t.Mul(a, d)
		n, d = d, new(big.Int).Sub(n, t)
	}

	// k = (maxDen - q0) / q1; candidates are p1/q1 and (p0+k*p1)/(q0+k*q1).
	k := new(big.Int).Sub(limit, q0)
	k.Div(k, q1)
	bq := new(big.Int).Mul(k, q1)
	bq.Add(bq, q0)
	lhs := new(big.Int).Mul(big.NewInt(2), d)
	lhs.Mul(lhs, bq)
	if lhs.Cmp(origDen) <= 0 {
		return toInt64(p1, q1)
	}
	bp := new(big.Int).Mul(k, p1)
	bp.Add(bp, p0)
	return toInt64(bp, bq)
}

func toInt64(n, d *big.Int) (int64, int64, bool) {
	if !n.IsInt64() || !d.IsInt64() {
		return 0, 0, false
	}
	return n.Int64(), d.Int64(), true
}

// FormatFraction renders v as "p/q" with q <= maxDen, or as "p" when the
// closest fraction is whole. Non-finite values use %g.
func FormatFraction(v float64, maxDen int64) string {
	num, den, ok := LimitDenominator(v, maxDen)
	if !ok {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	if den == 1 {
		return strconv.FormatInt(num, 10)
	}
	return strconv.FormatInt(num, 10) + "/" + strconv.FormatInt(den, 10)
}
