package crypto

import "math/bits"

// ModPow computes base^exponent mod modulus.
// Products are formed in 128 bits before reduction, so any uint64 operands
// are safe. A zero modulus panics.
func ModPow(base, exponent, modulus uint64) uint64 {
	result := 1 % modulus
	for exponent > 0 {
		if exponent&1 == 1 {
			result = mulMod(result, base, modulus)
		}
		base = mulMod(base, base, modulus)
		exponent >>= 1
	}
	return result
}

func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return bits.Rem64(hi, lo, m)
}
