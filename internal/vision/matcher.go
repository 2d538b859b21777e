package vision

import (
	"image"
	"math"
)

// Score slides tpl over screen and returns the top-left position of the
// best match together with a confidence in [0, 1]. The measure is zero-mean
// normalized cross-correlation, so it is invariant to uniform brightness
// shifts and deterministic for identical inputs. A template larger than the
// screen scores 0 at the origin.
func Score(screen, tpl *image.Gray) (image.Point, float64) {
	sw := screen.Bounds().Dx()
	sh := screen.Bounds().Dy()
	tw := tpl.Bounds().Dx()
	th := tpl.Bounds().Dy()

	if tw > sw || th > sh || tw == 0 || th == 0 {
		return image.Point{}, 0
	}

	tMean, tDev := grayStats(tpl)
	if tDev == 0 {
		// A flat template matches everything and nothing; refuse it.
		return image.Point{}, 0
	}

	best := image.Point{}
	bestScore := math.Inf(-1)

	n := float64(tw * th)
	for oy := 0; oy <= sh-th; oy++ {
		for ox := 0; ox <= sw-tw; ox++ {
			var sum, sumSq, cross float64
			for y := 0; y < th; y++ {
				srow := screen.Pix[screen.PixOffset(screen.Rect.Min.X+ox, screen.Rect.Min.Y+oy+y):]
				trow := tpl.Pix[tpl.PixOffset(tpl.Rect.Min.X, tpl.Rect.Min.Y+y):]
				for x := 0; x < tw; x++ {
					sv := float64(srow[x])
					tv := float64(trow[x])
					sum += sv
					sumSq += sv * sv
					cross += sv * (tv - tMean)
				}
			}

			sMean := sum / n
			sVar := sumSq - n*sMean*sMean
			if sVar <= 0 {
				continue
			}

			// cross already has the template mean removed; removing the
			// screen-patch mean from the other factor cancels out because
			// Σ(tv - tMean) = 0.
			score := cross / math.Sqrt(sVar*tDev)
			if score > bestScore {
				bestScore = score
				best = image.Point{X: ox, Y: oy}
			}
		}
	}

	if bestScore < 0 || math.IsInf(bestScore, -1) {
		return best, 0
	}
	if bestScore > 1 {
		bestScore = 1
	}

	return best, bestScore
}

// grayStats returns the mean and the sum of squared deviations of an image.
func grayStats(img *image.Gray) (mean, sumSqDev float64) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	n := float64(w * h)

	var sum, sumSq float64
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for _, v := range row {
			fv := float64(v)
			sum += fv
			sumSq += fv * fv
		}
	}

	mean = sum / n
	sumSqDev = sumSq - n*mean*mean

	return mean, sumSqDev
}
