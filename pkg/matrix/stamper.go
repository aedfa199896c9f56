package matrix

// Stamper is what kernels add their contributions to. Indices are 1-based.
type Stamper interface {
	AddElement(i, j int, value float64)
	AddRHS(i int, value float64)
}
