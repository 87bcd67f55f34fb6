package detect

import "fmt"

// Model identifies one of the two remote detection pipelines. The value is
// used directly in the predict request path.
type Model string

const (
	ModelSoil       Model = "soil"
	ModelVegetation Model = "vegetation"
)

// DefaultModel is what the dropdown starts on.
const DefaultModel = ModelSoil

// Models lists the selectable models in dropdown order.
var Models = []Model{ModelSoil, ModelVegetation}

// ParseModel validates a model key coming from the form.
func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case ModelSoil, ModelVegetation:
		return Model(s), nil
	default:
		return "", fmt.Errorf("unknown model: %q", s)
	}
}

// Label returns the human readable dropdown label.
func (m Model) Label() string {
	switch m {
	case ModelSoil:
		return "Soil Detection"
	case ModelVegetation:
		return "Vegetation Detection"
	default:
		return string(m)
	}
}
