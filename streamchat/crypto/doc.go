// Package crypto provides the primitives behind a streamchat secure channel.
//
// Components:
//   - 64-bit modular exponentiation (square-and-multiply, 128-bit intermediates)
//   - Finite-field Diffie-Hellman over a fixed 64-bit prime
//   - An LCG keystream XORed against message bytes
//
// None of this is meant to resist a real attacker: the modulus is small, the
// keystream is predictable and nothing is authenticated.
package crypto
