package signature

import (
	"hash/fnv"
	"math"
)

// Size is the number of features in a Vector.
const Size = 6

// Vector is the numeric form of a Signature:
// domain, complexity, input type, output type, keywords, duration.
type Vector [Size]float64

// HashUnit maps s to a stable scalar in [0,1).
// The value depends only on the bytes of s, so it is identical across
// processes and restarts.
func HashUnit(s string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return float64(h.Sum64()>>11) / (1 << 53)
}

// Dot returns the dot product of v and w.
func (v Vector) Dot(w Vector) float64 {
	var sum float64
	for i := range v {
		sum += v[i] * w[i]
	}
	return sum
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Cosine returns the cosine similarity of a and b, or 0 if either is the zero vector.
func Cosine(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return a.Dot(b) / (na * nb)
}

// Centroid returns the per-feature mean of vs, or the zero vector for no input.
func Centroid(vs []Vector) Vector {
	var c Vector
	if len(vs) == 0 {
		return c
	}
	for _, v := range vs {
		for i := range c {
			c[i] += v[i]
		}
	}
	n := float64(len(vs))
	for i := range c {
		c[i] /= n
	}
	return c
}

// MeanVariance returns the population variance of each feature averaged
// across all features. Fewer than two vectors have no spread.
func MeanVariance(vs []Vector) float64 {
	if len(vs) < 2 {
		return 0
	}
	mean := Centroid(vs)
	n := float64(len(vs))
	var total float64
	for i := 0; i < Size; i++ {
		var acc float64
		for _, v := range vs {
			d := v[i] - mean[i]
			acc += d * d
		}
		total += acc / n
	}
	return total / Size
}

// Vectors converts signatures to vectors in order.
func Vectors(sigs []Signature) []Vector {
	out := make([]Vector, len(sigs))
	for i, s := range sigs {
		out[i] = s.Vector()
	}
	return out
}
