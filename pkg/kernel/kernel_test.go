package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-transport/pkg/material"
	"github.com/edp1096/toy-transport/pkg/mesh"
)

type recordingStamper struct {
	a   map[[2]int]float64
	rhs map[int]float64
}

func newRecordingStamper() *recordingStamper {
	return &recordingStamper{a: map[[2]int]float64{}, rhs: map[int]float64{}}
}

func (r *recordingStamper) AddElement(i, j int, v float64) { r.a[[2]int{i, j}] += v }
func (r *recordingStamper) AddRHS(i int, v float64)        { r.rhs[i] += v }

type stubFields struct {
	scalar  map[[2]int]float64
	angular map[[3]int]float64
	history map[[4]int]float64
}

func (f stubFields) ScalarFlux(g, i int) float64 { return f.scalar[[2]int{g, i}] }

func (f stubFields) AngularFlux(g, n, i int) float64 { return f.angular[[3]int{g, n, i}] }

func (f stubFields) History(k, g, n, i int) float64 { return f.history[[4]int{k, g, n, i}] }

var slabMaterial = &material.Material{
	Name:            "slab",
	Total:           []float64{2, 1},
	Scatter:         [][]float64{{0.5, 0.25}, {0.1, 0.4}},
	Source:          []float64{3, 1},
	InverseVelocity: []float64{0.5, 2},
}

func twoCellStatus(blocks ...Block) *Status {
	cells := []mesh.Cell{{Left: 0, Width: 0.5}, {Left: 0.5, Width: 0.25}}
	return &Status{
		Group:           0,
		Cells:           cells,
		Materials:       []*material.Material{slabMaterial, slabMaterial},
		Blocks:          blocks,
		IsotropicFactor: 0.5,
		Fields: stubFields{
			scalar:  map[[2]int]float64{{0, 0}: 4, {0, 1}: 2, {1, 0}: 10, {1, 1}: 20},
			angular: map[[3]int]float64{{0, 1, 0}: 7},
			history: map[[4]int]float64{{1, 0, 0, 0}: 1, {1, 0, 0, 1}: 3},
		},
	}
}

func TestStreamingUpwindVacuum(t *testing.T) {
	s := newRecordingStamper()
	status := twoCellStatus(Block{Ordinate: 0, Mu: 0.5, Weight: 1}, Block{Ordinate: 1, Mu: -0.5, Weight: 1, Offset: 2})

	require.NoError(t, NewStreaming("stream", Boundary{}, Boundary{}, nil).Stamp(s, status))

	// mu > 0 couples to the left neighbour.
	assert.Equal(t, 0.5, s.a[[2]int{1, 1}])
	assert.Equal(t, 0.5, s.a[[2]int{2, 2}])
	assert.Equal(t, -0.5, s.a[[2]int{2, 1}])
	assert.Zero(t, s.a[[2]int{1, 2}])
	// mu < 0 couples to the right neighbour.
	assert.Equal(t, -0.5, s.a[[2]int{3, 4}])
	assert.Zero(t, s.a[[2]int{4, 3}])
	assert.Empty(t, s.rhs)
}

func TestStreamingIncoming(t *testing.T) {
	s := newRecordingStamper()
	status := twoCellStatus(Block{Ordinate: 1, Mu: -0.25, Weight: 1})
	right := Boundary{Kind: Incoming, Values: []float64{8}}

	require.NoError(t, NewStreaming("stream", Boundary{}, right, nil).Stamp(s, status))
	assert.Equal(t, map[int]float64{2: 2}, s.rhs)
}

func TestStreamingReflective(t *testing.T) {
	mirror := func(n int) int { return 1 - n }
	left := Boundary{Kind: Reflective}

	t.Run("lagged", func(t *testing.T) {
		s := newRecordingStamper()
		status := twoCellStatus(Block{Ordinate: 0, Mu: 0.5, Weight: 1})
		require.NoError(t, NewStreaming("stream", left, Boundary{}, mirror).Stamp(s, status))
		assert.Equal(t, 0.5*7, s.rhs[1])
	})

	t.Run("implicit", func(t *testing.T) {
		s := newRecordingStamper()
		status := twoCellStatus(Block{Ordinate: 0, Mu: 0.5, Weight: 1}, Block{Ordinate: 1, Mu: -0.5, Weight: 1, Offset: 2})
		require.NoError(t, NewStreaming("stream", left, Boundary{}, mirror).Stamp(s, status))
		assert.Equal(t, -0.5, s.a[[2]int{1, 3}])
		assert.Empty(t, s.rhs)
	})

	t.Run("no mirror map", func(t *testing.T) {
		status := twoCellStatus(Block{Ordinate: 0, Mu: 0.5, Weight: 1})
		assert.Error(t, NewStreaming("stream", left, Boundary{}, nil).Stamp(newRecordingStamper(), status))
	})
}

func TestCollision(t *testing.T) {
	s := newRecordingStamper()
	require.NoError(t, NewCollision("total", false).Stamp(s, twoCellStatus(Block{Weight: 1})))
	assert.Equal(t, 1.0, s.a[[2]int{1, 1}])
	assert.Equal(t, 0.5, s.a[[2]int{2, 2}])

	s = newRecordingStamper()
	require.NoError(t, NewCollision("removal", true).Stamp(s, twoCellStatus(Block{Ordinate: ScalarOrdinate})))
	assert.InDelta(t, 1.5*0.5, s.a[[2]int{1, 1}], 1e-15)
}

func TestScatteringKernels(t *testing.T) {
	s := newRecordingStamper()
	require.NoError(t, NewLaggedScattering("lagged").Stamp(s, twoCellStatus(Block{Weight: 1})))
	assert.InDelta(t, 0.5*0.5*4*0.5, s.rhs[1], 1e-15)
	assert.InDelta(t, 0.5*0.5*2*0.25, s.rhs[2], 1e-15)

	s = newRecordingStamper()
	status := twoCellStatus(Block{Ordinate: 0, Weight: 0.75}, Block{Ordinate: 1, Weight: 1.25, Offset: 2})
	require.NoError(t, NewScattering("implicit").Stamp(s, status))
	assert.InDelta(t, -0.5*0.5*0.5*0.75, s.a[[2]int{1, 1}], 1e-15)
	assert.InDelta(t, -0.5*0.5*0.5*1.25, s.a[[2]int{1, 3}], 1e-15)
	assert.InDelta(t, -0.5*0.5*0.5*0.75, s.a[[2]int{3, 1}], 1e-15)
}

func TestGroupTransfer(t *testing.T) {
	t.Run("downscatter into group 1", func(t *testing.T) {
		s := newRecordingStamper()
		status := twoCellStatus(Block{Weight: 1})
		status.Group = 1
		require.NoError(t, NewGroupTransfer("transfer", 2).Stamp(s, status))
		assert.InDelta(t, 0.5*0.25*4*0.5, s.rhs[1], 1e-15)
	})

	t.Run("upscatter ignored", func(t *testing.T) {
		s := newRecordingStamper()
		require.NoError(t, NewGroupTransfer("transfer", 2).Stamp(s, twoCellStatus(Block{Weight: 1})))
		assert.Empty(t, s.rhs)
	})

	t.Run("upscatter enabled", func(t *testing.T) {
		s := newRecordingStamper()
		status := twoCellStatus(Block{Weight: 1})
		status.Upscattering = true
		require.NoError(t, NewGroupTransfer("transfer", 2).Stamp(s, status))
		assert.InDelta(t, 0.5*0.1*10*0.5, s.rhs[1], 1e-15)
	})
}

func TestSource(t *testing.T) {
	s := newRecordingStamper()
	require.NoError(t, NewSource("q").Stamp(s, twoCellStatus(Block{Weight: 1})))
	assert.InDelta(t, 0.5*3*0.5, s.rhs[1], 1e-15)
	assert.InDelta(t, 0.5*3*0.25, s.rhs[2], 1e-15)
}

func TestTimeDerivative(t *testing.T) {
	s := newRecordingStamper()
	require.NoError(t, NewTimeDerivative("dt").Stamp(s, twoCellStatus(Block{Weight: 1})))
	assert.Empty(t, s.a, "steady state stamps nothing")

	status := twoCellStatus(Block{Weight: 1})
	status.TimeCoeffs = []float64{10, -10}
	require.NoError(t, NewTimeDerivative("dt").Stamp(s, status))
	assert.InDelta(t, 10*0.5*0.5, s.a[[2]int{1, 1}], 1e-15)
	assert.InDelta(t, 10*0.5*0.5*1, s.rhs[1], 1e-15)
	assert.InDelta(t, 10*0.5*0.25*3, s.rhs[2], 1e-15)
}

func TestDiffusion(t *testing.T) {
	mat := &material.Material{Name: "d", Total: []float64{1}, Scatter: [][]float64{{0}}, Diffusion: []float64{1}}
	status := &Status{
		Cells:           []mesh.Cell{{Width: 1}, {Left: 1, Width: 1}},
		Materials:       []*material.Material{mat, mat},
		Blocks:          []Block{{Ordinate: ScalarOrdinate}},
		IsotropicFactor: 1,
		Fields:          stubFields{},
	}

	t.Run("interior and vacuum faces", func(t *testing.T) {
		s := newRecordingStamper()
		require.NoError(t, NewDiffusion("leak", Boundary{}, Boundary{Kind: Reflective}).Stamp(s, status))
		// Face conductance 1/(1/2+1/2) and Marshak leakage 2/(4+1).
		assert.InDelta(t, 1+0.4, s.a[[2]int{1, 1}], 1e-15)
		assert.InDelta(t, -1, s.a[[2]int{1, 2}], 1e-15)
		assert.InDelta(t, 1, s.a[[2]int{2, 2}], 1e-15)
	})

	t.Run("incoming face", func(t *testing.T) {
		s := newRecordingStamper()
		left := Boundary{Kind: Incoming, Values: []float64{5}}
		require.NoError(t, NewDiffusion("leak", left, Boundary{Kind: Reflective}).Stamp(s, status))
		assert.InDelta(t, 2*5*0.4, s.rhs[1], 1e-15)
	})

	t.Run("needs scalar block", func(t *testing.T) {
		bad := *status
		bad.Blocks = []Block{{Ordinate: 0, Mu: 1}}
		assert.Error(t, NewDiffusion("leak", Boundary{}, Boundary{}).Stamp(newRecordingStamper(), &bad))
	})
}

func TestParseBoundaryKind(t *testing.T) {
	for _, name := range []string{"vacuum", "reflective", "incoming"} {
		k, err := ParseBoundaryKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, k.String())
	}
	_, err := ParseBoundaryKind("periodic")
	assert.Error(t, err)
}
