// Package fieldgen emits OpenCL arithmetic source for the BLS12-381 scalar
// field. The generated code provides the FIELD_add/FIELD_sub/FIELD_mul device
// functions the layer kernels are written against, with every constant
// (modulus limbs, Montgomery R^2 and one, the -p^-1 word) derived from the
// field modulus, so the output is deterministic.
package fieldgen

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

const limbBits = 32

// Field generates OpenCL source implementing Montgomery-form arithmetic for
// the BLS12-381 scalar field under the given symbol prefix, e.g. "Fr".
func Field(name string) string {
	return generate(name, fr.Modulus())
}

func generate(name string, p *big.Int) string {
	limbs := (p.BitLen() + limbBits - 1) / limbBits

	// R = 2^(limbBits*limbs) mod p, the Montgomery radix.
	r := new(big.Int).Lsh(big.NewInt(1), uint(limbBits*limbs))
	r.Mod(r, p)
	r2 := new(big.Int).Mul(r, r)
	r2.Mod(r2, p)

	// inv = -p^-1 mod 2^limbBits, the Montgomery reduction word.
	word := new(big.Int).Lsh(big.NewInt(1), limbBits)
	inv := new(big.Int).ModInverse(new(big.Int).Mod(p, word), word)
	inv.Sub(word, inv)
	inv.Mod(inv, word)

	var b strings.Builder
	fmt.Fprintf(&b, "// %s: %d-bit prime field, %d limbs of %d bits, Montgomery form\n",
		name, p.BitLen(), limbs, limbBits)
	fmt.Fprintf(&b, "#define FIELD_LIMBS %d\n", limbs)
	fmt.Fprintf(&b, "#define FIELD_LIMB_BITS %d\n", limbBits)
	fmt.Fprintf(&b, "#define FIELD_INV %du\n", inv)
	b.WriteString("typedef uint FIELD_limb;\n")
	b.WriteString("typedef ulong FIELD_limb2;\n")
	b.WriteString("typedef struct { FIELD_limb val[FIELD_LIMBS]; } FIELD;\n")
	fmt.Fprintf(&b, "__constant FIELD FIELD_P = { { %s } };\n", limbList(p, limbs))
	fmt.Fprintf(&b, "__constant FIELD FIELD_ONE = { { %s } };\n", limbList(r, limbs))
	fmt.Fprintf(&b, "__constant FIELD FIELD_R2 = { { %s } };\n", limbList(r2, limbs))
	fmt.Fprintf(&b, "__constant FIELD FIELD_ZERO = { { %s } };\n", limbList(new(big.Int), limbs))
	b.WriteString(arithmeticSrc)

	return strings.ReplaceAll(b.String(), "FIELD", name)
}

// limbList renders x as little-endian limbBits-wide limb literals.
func limbList(x *big.Int, limbs int) string {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), limbBits), big.NewInt(1))
	rest := new(big.Int).Set(x)
	parts := make([]string, limbs)
	for i := 0; i < limbs; i++ {
		limb := new(big.Int).And(rest, mask)
		parts[i] = fmt.Sprintf("0x%08xu", limb)
		rest.Rsh(rest, limbBits)
	}
	return strings.Join(parts, ", ")
}

const arithmeticSrc = `
FIELD_limb FIELD_mac_with_carry(FIELD_limb a, FIELD_limb b, FIELD_limb c, FIELD_limb *carry) {
  FIELD_limb2 x = (FIELD_limb2)a * b + c + *carry;
  *carry = (FIELD_limb)(x >> FIELD_LIMB_BITS);
  return (FIELD_limb)x;
}

FIELD_limb FIELD_add_with_carry(FIELD_limb a, FIELD_limb *carry) {
  FIELD_limb old = a;
  a += *carry;
  *carry = a < old;
  return a;
}

bool FIELD_gte(FIELD a, FIELD b) {
  for (char i = FIELD_LIMBS - 1; i >= 0; i--) {
    if (a.val[i] > b.val[i]) return true;
    if (a.val[i] < b.val[i]) return false;
  }
  return true;
}

bool FIELD_eq(FIELD a, FIELD b) {
  for (uchar i = 0; i < FIELD_LIMBS; i++)
    if (a.val[i] != b.val[i]) return false;
  return true;
}

FIELD FIELD_add_(FIELD a, FIELD b) {
  bool carry = 0;
  for (uchar i = 0; i < FIELD_LIMBS; i++) {
    FIELD_limb old = a.val[i];
    a.val[i] += b.val[i] + carry;
    carry = carry ? old >= a.val[i] : old > a.val[i];
  }
  return a;
}

FIELD FIELD_sub_(FIELD a, FIELD b) {
  bool borrow = 0;
  for (uchar i = 0; i < FIELD_LIMBS; i++) {
    FIELD_limb old = a.val[i];
    a.val[i] -= b.val[i] + borrow;
    borrow = borrow ? old <= a.val[i] : old < a.val[i];
  }
  return a;
}

FIELD FIELD_add(FIELD a, FIELD b) {
  FIELD res = FIELD_add_(a, b);
  if (FIELD_gte(res, FIELD_P)) res = FIELD_sub_(res, FIELD_P);
  return res;
}

FIELD FIELD_sub(FIELD a, FIELD b) {
  FIELD res = FIELD_sub_(a, b);
  if (!FIELD_gte(a, b)) res = FIELD_add_(res, FIELD_P);
  return res;
}

FIELD FIELD_double(FIELD a) {
  return FIELD_add(a, a);
}

// CIOS Montgomery multiplication.
FIELD FIELD_mul(FIELD a, FIELD b) {
  FIELD_limb t[FIELD_LIMBS + 2] = {0};
  for (uchar i = 0; i < FIELD_LIMBS; i++) {
    FIELD_limb carry = 0;
    for (uchar j = 0; j < FIELD_LIMBS; j++)
      t[j] = FIELD_mac_with_carry(a.val[j], b.val[i], t[j], &carry);
    t[FIELD_LIMBS] = FIELD_add_with_carry(t[FIELD_LIMBS], &carry);
    t[FIELD_LIMBS + 1] = carry;

    carry = 0;
    FIELD_limb m = FIELD_INV * t[0];
    FIELD_mac_with_carry(m, FIELD_P.val[0], t[0], &carry);
    for (uchar j = 1; j < FIELD_LIMBS; j++)
      t[j - 1] = FIELD_mac_with_carry(m, FIELD_P.val[j], t[j], &carry);
    t[FIELD_LIMBS - 1] = FIELD_add_with_carry(t[FIELD_LIMBS], &carry);
    t[FIELD_LIMBS] = t[FIELD_LIMBS + 1] + carry;
  }
  FIELD result;
  for (uchar i = 0; i < FIELD_LIMBS; i++) result.val[i] = t[i];
  if (FIELD_gte(result, FIELD_P)) result = FIELD_sub_(result, FIELD_P);
  return result;
}

FIELD FIELD_sqr(FIELD a) {
  return FIELD_mul(a, a);
}

FIELD FIELD_mont(FIELD a) {
  return FIELD_mul(a, FIELD_R2);
}

FIELD FIELD_unmont(FIELD a) {
  FIELD one = FIELD_ZERO;
  one.val[0] = 1;
  return FIELD_mul(a, one);
}

FIELD FIELD_pow(FIELD base, uint exponent) {
  FIELD res = FIELD_ONE;
  while (exponent > 0) {
    if (exponent & 1) res = FIELD_mul(res, base);
    exponent >>= 1;
    base = FIELD_sqr(base);
  }
  return res;
}
`
