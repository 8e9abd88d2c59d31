package domain

// LinearModel is a trained multinomial linear classifier.
// Implementations are immutable after load and safe for concurrent use.
type LinearModel interface {
	// Standardize returns (x[i] - mean[i]) / scale[i] for every feature.
	Standardize(x []float64) []float64

	// ScoreByClass returns dot(scaled, coef[k]) + intercept[k] for every class k.
	ScoreByClass(scaled []float64) []float64

	// ClassLabels returns the class labels in the order used by ScoreByClass.
	ClassLabels() []string

	// Coefficients returns the weight vector of class k.
	Coefficients(k int) []float64
}
