package forecast

import (
	"math"
	"time"

	"IdxLens/internal/domain/models"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// noiseFloor keeps the ridge penalties positive on perfectly smooth input.
const noiseFloor = 1e-6

// fitted is the outcome of the penalised least-squares fit, in scaled units.
type fitted struct {
	beta []float64
	rmse float64
	cond float64
}

// noiseVariance estimates the observation noise from first differences, which
// is insensitive to the trend level.
func noiseVariance(y []float64) float64 {
	if len(y) < 3 {
		return noiseFloor
	}
	diff := make([]float64, len(y)-1)
	for i := 1; i < len(y); i++ {
		diff[i-1] = y[i] - y[i-1]
	}
	v := stat.Variance(diff, nil) / 2
	if math.IsNaN(v) || v < noiseFloor {
		return noiseFloor
	}
	return v
}

// penalties builds the diagonal ridge: zero on intercept and slope, Laplace-like
// shrinkage on slope changes and a wide prior on the Fourier coefficients.
func penalties(l *layout, o Options, sigma2 float64) []float64 {
	lam := make([]float64, l.cols)
	cp := sigma2 / (o.ChangepointPriorScale * o.ChangepointPriorScale)
	for j := range l.changepoints {
		lam[colHinges+j] = cp
	}
	for _, s := range l.seasons {
		scale := s.PriorScale
		if scale <= 0 {
			scale = o.SeasonalityPriorScale
		}
		v := sigma2 / (scale * scale)
		for c := 0; c < 2*s.Order; c++ {
			lam[s.col+c] = v
		}
	}
	return lam
}

// solve fits y against the design rows of dates with ridge penalties,
// through the Cholesky factor of the normal equations.
func solve(l *layout, dates []time.Time, y []float64, o Options) (*fitted, error) {
	n, p := len(dates), l.cols
	x := mat.NewDense(n, p, nil)
	row := make([]float64, p)
	for i, d := range dates {
		l.row(d, row)
		x.SetRow(i, row)
	}

	var a mat.SymDense
	a.SymOuterK(1, x.T())
	lam := penalties(l, o, noiseVariance(y))
	for j, v := range lam {
		a.SetSym(j, j, a.At(j, j)+v)
	}

	yv := mat.NewVecDense(n, y)
	var b mat.VecDense
	b.MulVec(x.T(), yv)

	var chol mat.Cholesky
	if ok := chol.Factorize(&a); !ok {
		return nil, &models.ConvergenceError{Stage: "fit", Detail: "normal equations are not positive definite"}
	}
	cond := chol.Cond()
	if math.IsNaN(cond) || math.IsInf(cond, 0) || cond > o.MaxConditionNumber {
		return nil, &models.ConvergenceError{Stage: "fit", ConditionNumber: cond, Detail: "normal equations are ill-conditioned"}
	}

	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &b); err != nil {
		return nil, &models.ConvergenceError{Stage: "fit", ConditionNumber: cond, Detail: err.Error()}
	}
	coef := make([]float64, p)
	for j := range coef {
		v := beta.AtVec(j)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &models.ConvergenceError{Stage: "fit", ConditionNumber: cond, Detail: "non-finite coefficient"}
		}
		coef[j] = v
	}

	var fit mat.VecDense
	fit.MulVec(x, &beta)
	ss := 0.0
	for i := range y {
		r := y[i] - fit.AtVec(i)
		ss += r * r
	}
	return &fitted{beta: coef, rmse: math.Sqrt(ss / float64(n)), cond: cond}, nil
}
