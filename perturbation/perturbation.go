// Package perturbation implements the generic per-pixel delta iteration:
// given a reference orbit, an optional BLA table, and δc, it produces an
// iteration count plus escape/glitch flags and shading data — the same
// loop body instantiated at compile time for plain float64, HDR, and
// BigFloat delta arithmetic via complexdelta.Delta.
package perturbation

import (
	"math"

	"github.com/whalelogic/fractalwonder/bla"
	"github.com/whalelogic/fractalwonder/complexdelta"
	"github.com/whalelogic/fractalwonder/fractalconfig"
	"github.com/whalelogic/fractalwonder/orbit"
	"github.com/whalelogic/fractalwonder/tile"
)

// Step runs the perturbation loop for one pixel's δc, against ref (and,
// optionally, a BLA table built for this orbit/dc_max), for up to
// maxIterations, with glitch threshold tauSq. T is the numeric kind δc,
// δz, and δρ are carried in (F64Complex, hdrfloat.Complex, or
// bigfloat.Complex), chosen by the caller to match the current zoom depth.
func Step[T complexdelta.Delta[T]](ref orbit.Reference, table *bla.Table, deltaC T, maxIterations uint32, tauSq float64) tile.PixelData {
	orbitLen := ref.Len()
	if orbitLen == 0 {
		return tile.PixelData{MaxIterations: maxIterations, Glitched: true}
	}

	referenceEscaped := ref.EscapedAt != nil

	var zero T
	dz := zero.Zero()
	drho := zero.Zero()
	m := 0
	var n uint32
	var blaSkipped uint32
	glitched := false

	for n < maxIterations {
		if referenceEscaped && m >= orbitLen {
			glitched = true
		}

		zm := ref.Orbit[m%orbitLen]
		derM := ref.Derivative[m%orbitLen]
		zmComplex := zero.FromF64Pair(zm[0], zm[1])
		derMComplex := zero.FromF64Pair(derM[0], derM[1])

		z := zmComplex.Add(dz)
		zNormSq := z.NormSq()
		rho := derMComplex.Add(drho)

		if zNormSq > fractalconfig.EscapeRadiusSq {
			zRe, zIm := z.ToF64Pair()
			rhoRe, rhoIm := rho.ToF64Pair()
			snRe, snIm := surfaceNormalDirection(zRe, zIm, rhoRe, rhoIm)
			return tile.PixelData{
				Iterations:      n,
				MaxIterations:   maxIterations,
				Escaped:         true,
				Glitched:        glitched,
				FinalZNormSq:    float32(zNormSq),
				SurfaceNormalRe: snRe,
				SurfaceNormalIm: snIm,
				BLASkipped:      blaSkipped,
			}
		}

		// Pauldelbrot glitch criterion: the pixel's full z has become tiny
		// relative to a non-negligible reference value Z_m, so δz has lost
		// the precision the perturbation approximation relies on.
		zmNormSq := zm[0]*zm[0] + zm[1]*zm[1]
		if zmNormSq > 1e-20 && zNormSq < tauSq*zmNormSq {
			glitched = true
		}

		dzNormSq := dz.NormSq()
		if zNormSq < dzNormSq {
			dz = z
			drho = rho
			m = 0
			continue
		}

		if table != nil {
			if entry, ok := table.Query(uint32(m), dzNormSq); ok {
				dzRe, dzIm := dz.ToF64Pair()
				aRe, aIm := entry.A.ToF64Pair()
				bRe, bIm := entry.B.ToF64Pair()

				newDzRe := aRe*dzRe - aIm*dzIm
				newDzIm := aRe*dzIm + aIm*dzRe
				dcRe, dcIm := deltaC.ToF64Pair()
				newDzRe += bRe*dcRe - bIm*dcIm
				newDzIm += bRe*dcIm + bIm*dcRe

				dz = zero.FromF64Pair(newDzRe, newDzIm)
				// BLA linearizes only δz; δρ is not advanced through a skip.
				// Later standard steps continue from the δρ held before the
				// skip, and an escape reached after a skip takes its surface
				// normal from that δρ. No iteration is recomputed without BLA.
				m += int(entry.L)
				n += entry.L
				blaSkipped += entry.L - 1
				continue
			}
		}

		// Standard step: δz' = 2·Z_m·δz + δz² + δc.
		oldDz := dz
		twoZDz := zmComplex.Mul(dz).Scale(2.0)
		dzSq := dz.Square()
		dz = twoZDz.Add(dzSq).Add(deltaC)

		// δρ' = 2·Z_m·δρ + 2·δz·Der_m + 2·δz·δρ.
		term1 := zmComplex.Mul(drho).Scale(2.0)
		term2 := oldDz.Mul(derMComplex).Scale(2.0)
		term3 := oldDz.Mul(drho).Scale(2.0)
		drho = term1.Add(term2).Add(term3)

		m++
		n++
	}

	return tile.PixelData{
		Iterations:    maxIterations,
		MaxIterations: maxIterations,
		Escaped:       false,
		Glitched:      glitched,
		BLASkipped:    blaSkipped,
	}
}

// surfaceNormalDirection computes the normalized z/ρ direction used for
// 3D surface-normal shading, returning (0, 0) for degenerate inputs. This
// works at any zoom level since the result is always a unit vector.
func surfaceNormalDirection(zRe, zIm, rhoRe, rhoIm float64) (float32, float32) {
	rhoNormSq := rhoRe*rhoRe + rhoIm*rhoIm
	if !isFinite(rhoNormSq) || rhoNormSq == 0.0 {
		return 0, 0
	}

	uRe := (zRe*rhoRe + zIm*rhoIm) / rhoNormSq
	uIm := (zIm*rhoRe - zRe*rhoIm) / rhoNormSq

	uNorm := math.Sqrt(uRe*uRe + uIm*uIm)
	if !isFinite(uNorm) || uNorm == 0.0 {
		return 0, 0
	}

	return float32(uRe / uNorm), float32(uIm / uNorm)
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
