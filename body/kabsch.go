package body

import "math"

// bestFitRotation finds the rotation matrix R (d x d, row-major flattened)
// that best maps the reference configuration ref onto the current
// configuration cur, both d*n flattened point clouds already centered on
// their own centroids, minimizing sum_i |R*ref_i - cur_i|^2. This is the
// rigid-body drift-removal step of spec.md §3 ("finding the best isometry
// ... from the snapshot shape to the updated points"), grounded on
// sim/solid.h's reshape() contract; Horn's closed-form quaternion method
// is used for d==3 since cytosim's own SVD-free derivation is the
// standard reference for this exact problem.
func bestFitRotation(ref, cur []float64, d, n int) []float64 {
	// cross-covariance H = sum_i cur_i * ref_i^T  (d x d)
	h := make([]float64, d*d)
	for i := 0; i < n; i++ {
		for a := 0; a < d; a++ {
			for b := 0; b < d; b++ {
				h[d*a+b] += cur[d*i+a] * ref[d*i+b]
			}
		}
	}

	switch d {
	case 1:
		return []float64{1}
	case 2:
		return rotation2D(h)
	default:
		return rotation3D(h)
	}
}

func rotation2D(h []float64) []float64 {
	// H = [[Sxx,Sxy],[Syx,Syy]]; optimal rotation angle (Kabsch in 2D)
	// is theta = atan2(Syx - Sxy, Sxx + Syy).
	sxx, sxy, syx, syy := h[0], h[1], h[2], h[3]
	theta := math.Atan2(syx-sxy, sxx+syy)
	c, s := math.Cos(theta), math.Sin(theta)
	return []float64{c, -s, s, c}
}

func rotation3D(h []float64) []float64 {
	// Horn's method: build the 4x4 symmetric matrix N from H and take the
	// eigenvector of its largest eigenvalue as the optimal unit quaternion.
	// Horn's S_ab is sum_i ref_a*cur_b, the transpose of h, so h is read
	// column-wise here.
	sxx, sxy, sxz := h[0], h[3], h[6]
	syx, syy, syz := h[1], h[4], h[7]
	szx, szy, szz := h[2], h[5], h[8]

	n := [4][4]float64{
		{sxx + syy + szz, syz - szy, szx - sxz, sxy - syx},
		{syz - szy, sxx - syy - szz, sxy + syx, szx + sxz},
		{szx - sxz, sxy + syx, -sxx + syy - szz, syz + szy},
		{sxy - syx, szx + sxz, syz + szy, -sxx - syy + szz},
	}

	vec := dominantEigenvector(n)
	w, x, y, z := vec[0], vec[1], vec[2], vec[3]

	return []float64{
		w*w + x*x - y*y - z*z, 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), w*w - x*x + y*y - z*z, 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), w*w - x*x - y*y + z*z,
	}
}

// dominantEigenvector returns the unit eigenvector of the largest
// eigenvalue of the symmetric 4x4 matrix m, found by the cyclic Jacobi
// eigenvalue algorithm (a handful of sweeps is always enough for a 4x4
// matrix to converge to machine precision).
func dominantEigenvector(m [4][4]float64) [4]float64 {
	v := [4][4]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
	a := m

	for sweep := 0; sweep < 50; sweep++ {
		off := 0.0
		for p := 0; p < 4; p++ {
			for q := p + 1; q < 4; q++ {
				off += a[p][q] * a[p][q]
			}
		}
		if off < 1e-28 {
			break
		}
		for p := 0; p < 4; p++ {
			for q := p + 1; q < 4; q++ {
				if math.Abs(a[p][q]) < 1e-300 {
					continue
				}
				theta := 0.5 * math.Atan2(2*a[p][q], a[q][q]-a[p][p])
				c, s := math.Cos(theta), math.Sin(theta)
				for k := 0; k < 4; k++ {
					akp, akq := a[k][p], a[k][q]
					a[k][p] = c*akp - s*akq
					a[k][q] = s*akp + c*akq
				}
				for k := 0; k < 4; k++ {
					apk, aqk := a[p][k], a[q][k]
					a[p][k] = c*apk - s*aqk
					a[q][k] = s*apk + c*aqk
				}
				for k := 0; k < 4; k++ {
					vkp, vkq := v[k][p], v[k][q]
					v[k][p] = c*vkp - s*vkq
					v[k][q] = s*vkp + c*vkq
				}
			}
		}
	}

	best := 0
	for i := 1; i < 4; i++ {
		if a[i][i] > a[best][best] {
			best = i
		}
	}
	var out [4]float64
	norm := 0.0
	for k := 0; k < 4; k++ {
		out[k] = v[k][best]
		norm += out[k] * out[k]
	}
	norm = math.Sqrt(norm)
	if norm > 1e-300 {
		for k := range out {
			out[k] /= norm
		}
	}
	return out
}
