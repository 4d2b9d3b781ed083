package ssm

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Meta identifies a saved system.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Note      string    `json:"note,omitempty"`
	FinalLoss float64   `json:"final_loss,omitempty"`
}

type matJSON struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

type readoutJSON struct {
	Type string   `json:"type"`
	C    *matJSON `json:"c,omitempty"`
	D    *matJSON `json:"d,omitempty"`
	W1   *matJSON `json:"w1,omitempty"`
	B1   *matJSON `json:"b1,omitempty"`
	W2   *matJSON `json:"w2,omitempty"`
	B2   *matJSON `json:"b2,omitempty"`
}

type cellJSON struct {
	A    matJSON `json:"a"`
	K    matJSON `json:"k"`
	B    matJSON `json:"b"`
	Bias matJSON `json:"bias"`
}

type modelJSON struct {
	Cell cellJSON    `json:"cell"`
	Out  readoutJSON `json:"out"`
}

type systemJSON struct {
	Meta               Meta         `json:"meta"`
	Behavior           *modelJSON   `json:"behavior,omitempty"`
	Neural             *modelJSON   `json:"neural,omitempty"`
	ObsFromBehavior    *readoutJSON `json:"obs_from_behavior,omitempty"`
	BehaviorFromNeural *readoutJSON `json:"behavior_from_neural,omitempty"`
}

func denseJSON(m *mat.Dense) matJSON {
	r, c := m.Dims()
	data := make([]float64, r*c)
	copy(data, m.RawMatrix().Data)
	return matJSON{r, c, data}
}

func vecJSON(v *mat.VecDense) matJSON {
	data := make([]float64, v.Len())
	copy(data, v.RawVector().Data)
	return matJSON{v.Len(), 1, data}
}

func (m matJSON) dense() (*mat.Dense, error) {
	if len(m.Data) != m.Rows*m.Cols {
		return nil, fmt.Errorf("ssm: checkpoint matrix has %d values for %dx%d", len(m.Data), m.Rows, m.Cols)
	}
	return mat.NewDense(m.Rows, m.Cols, m.Data), nil
}

func (m matJSON) vec() (*mat.VecDense, error) {
	if m.Cols != 1 || len(m.Data) != m.Rows {
		return nil, fmt.Errorf("ssm: checkpoint vector has shape %dx%d", m.Rows, m.Cols)
	}
	return mat.NewVecDense(m.Rows, m.Data), nil
}

func readoutToJSON(r Readout) (*readoutJSON, error) {
	switch ro := r.(type) {
	case *LinearReadout:
		c := denseJSON(ro.C)
		d := vecJSON(ro.D)
		return &readoutJSON{Type: "linear", C: &c, D: &d}, nil
	case *MLPReadout:
		w1, b1 := denseJSON(ro.W1), vecJSON(ro.B1)
		w2, b2 := denseJSON(ro.W2), vecJSON(ro.B2)
		return &readoutJSON{Type: "mlp", W1: &w1, B1: &b1, W2: &w2, B2: &b2}, nil
	default:
		return nil, fmt.Errorf("ssm: cannot checkpoint readout of type %T", r)
	}
}

func readoutFromJSON(j *readoutJSON) (Readout, error) {
	switch j.Type {
	case "linear":
		if j.C == nil || j.D == nil {
			return nil, fmt.Errorf("ssm: linear readout checkpoint incomplete")
		}
		c, err := j.C.dense()
		if err != nil {
			return nil, err
		}
		d, err := j.D.vec()
		if err != nil {
			return nil, err
		}
		if m, _ := c.Dims(); d.Len() != m {
			return nil, fmt.Errorf("ssm: checkpoint readout bias has %d entries for %d outputs", d.Len(), m)
		}
		return &LinearReadout{C: c, D: d}, nil
	case "mlp":
		if j.W1 == nil || j.B1 == nil || j.W2 == nil || j.B2 == nil {
			return nil, fmt.Errorf("ssm: mlp readout checkpoint incomplete")
		}
		w1, err := j.W1.dense()
		if err != nil {
			return nil, err
		}
		b1, err := j.B1.vec()
		if err != nil {
			return nil, err
		}
		w2, err := j.W2.dense()
		if err != nil {
			return nil, err
		}
		b2, err := j.B2.vec()
		if err != nil {
			return nil, err
		}
		hidden, _ := w1.Dims()
		mOut, nHidden := w2.Dims()
		if b1.Len() != hidden || nHidden != hidden || b2.Len() != mOut {
			return nil, fmt.Errorf("ssm: checkpoint mlp readout layers don't chain")
		}
		return &MLPReadout{W1: w1, B1: b1, W2: w2, B2: b2}, nil
	default:
		return nil, fmt.Errorf("ssm: unknown readout type %q", j.Type)
	}
}

func modelToJSON(m *Model) (*modelJSON, error) {
	out, err := readoutToJSON(m.Out)
	if err != nil {
		return nil, err
	}
	return &modelJSON{
		Cell: cellJSON{
			A:    denseJSON(m.Cell.A),
			K:    denseJSON(m.Cell.K),
			B:    denseJSON(m.Cell.B),
			Bias: vecJSON(m.Cell.Bias),
		},
		Out: *out,
	}, nil
}

func modelFromJSON(j *modelJSON) (*Model, error) {
	a, err := j.Cell.A.dense()
	if err != nil {
		return nil, err
	}
	k, err := j.Cell.K.dense()
	if err != nil {
		return nil, err
	}
	b, err := j.Cell.B.dense()
	if err != nil {
		return nil, err
	}
	bias, err := j.Cell.Bias.vec()
	if err != nil {
		return nil, err
	}
	out, err := readoutFromJSON(&j.Out)
	if err != nil {
		return nil, err
	}

	// The constructors panic on mismatched shapes; a checkpoint read from
	// disk is data, so validate here and return errors instead.
	nx, nxc := a.Dims()
	kr, _ := k.Dims()
	br, _ := b.Dims()
	if nxc != nx || kr != nx || br != nx || bias.Len() != nx {
		return nil, fmt.Errorf("ssm: checkpoint cell matrices don't share a state order")
	}
	if out.InDim() != nx {
		return nil, fmt.Errorf("ssm: checkpoint readout takes %d states, cell has %d", out.InDim(), nx)
	}
	return NewModel(NewCell(a, k, b, bias), out), nil
}

// Save writes the system as a JSON checkpoint. A fresh run ID is assigned
// when meta.ID is empty. The metadata actually written is returned.
func (s *System) Save(path string, meta Meta) (Meta, error) {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	file := systemJSON{Meta: meta}
	var err error
	if s.Behavior != nil {
		if file.Behavior, err = modelToJSON(s.Behavior); err != nil {
			return meta, err
		}
	}
	if s.Neural != nil {
		if file.Neural, err = modelToJSON(s.Neural); err != nil {
			return meta, err
		}
	}
	if s.ObsFromBehavior != nil {
		if file.ObsFromBehavior, err = readoutToJSON(s.ObsFromBehavior); err != nil {
			return meta, err
		}
	}
	if s.BehaviorFromNeural != nil {
		if file.BehaviorFromNeural, err = readoutToJSON(s.BehaviorFromNeural); err != nil {
			return meta, err
		}
	}

	raw, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return meta, err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return meta, fmt.Errorf("ssm: writing checkpoint: %w", err)
	}
	return meta, nil
}

// Load reads a checkpoint written by Save.
func Load(path string) (*System, Meta, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("ssm: reading checkpoint: %w", err)
	}
	var file systemJSON
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, Meta{}, fmt.Errorf("ssm: parsing checkpoint: %w", err)
	}

	sys := &System{}
	if file.Behavior != nil {
		if sys.Behavior, err = modelFromJSON(file.Behavior); err != nil {
			return nil, Meta{}, err
		}
	}
	if file.Neural != nil {
		if sys.Neural, err = modelFromJSON(file.Neural); err != nil {
			return nil, Meta{}, err
		}
	}
	if file.ObsFromBehavior != nil {
		if sys.ObsFromBehavior, err = readoutFromJSON(file.ObsFromBehavior); err != nil {
			return nil, Meta{}, err
		}
	}
	if file.BehaviorFromNeural != nil {
		if sys.BehaviorFromNeural, err = readoutFromJSON(file.BehaviorFromNeural); err != nil {
			return nil, Meta{}, err
		}
	}
	return sys, file.Meta, nil
}
