// Package wavelet implements a causal stationary (undecimated) wavelet
// transform for streaming signals. Analysis and synthesis run one sample at
// a time; the reconstruction reproduces the input exactly after a fixed,
// known delay.
package wavelet

import "fmt"

// Family describes an orthogonal wavelet by its scaling (reconstruction
// lowpass) filter. The remaining three filters of the quadruple are derived
// from it.
type Family struct {
	name    string
	scaling []float64
}

// Predefined orthogonal Daubechies families.
var (
	Haar = Family{name: "haar", scaling: []float64{
		0.7071067811865476, 0.7071067811865476,
	}}
	DB2 = Family{name: "db2", scaling: []float64{
		0.48296291314469025, 0.8365163037378079,
		0.22414386804185735, -0.12940952255092145,
	}}
	DB4 = Family{name: "db4", scaling: []float64{
		0.2303778133088965, 0.7148465705529157,
		0.6308807679298589, -0.027983769416859854,
		-0.18703481171909309, 0.030841381835560764,
		0.0328830116668852, -0.010597401785069032,
	}}
)

// ByName returns the family with the given name.
func ByName(name string) (Family, error) {
	switch name {
	case "haar", "db1":
		return Haar, nil
	case "db2":
		return DB2, nil
	case "db4":
		return DB4, nil
	}
	return Family{}, fmt.Errorf("wavelet: unknown family %q", name)
}

// Name returns the family name.
func (f Family) Name() string {
	return f.name
}

// Len returns the filter length.
func (f Family) Len() int {
	return len(f.scaling)
}

func (f Family) valid() bool {
	return len(f.scaling) >= 2 && len(f.scaling)%2 == 0
}

// filters derives the analysis/synthesis quadruple from the scaling filter.
// The quadruple satisfies recLo*decLo + recHi*decHi = 2*delta[n-(len-1)],
// which is what makes streaming reconstruction exact.
func (f Family) filters() (decLo, decHi, recLo, recHi []float64) {
	n := len(f.scaling)
	decLo = make([]float64, n)
	decHi = make([]float64, n)
	recLo = make([]float64, n)
	recHi = make([]float64, n)
	for i, h := range f.scaling {
		recLo[i] = h
		decLo[n-1-i] = h
	}
	for i := range recHi {
		recHi[i] = f.scaling[n-1-i]
		if i%2 == 1 {
			recHi[i] = -recHi[i]
		}
	}
	for i := range decHi {
		decHi[i] = recHi[n-1-i]
	}
	return decLo, decHi, recLo, recHi
}
