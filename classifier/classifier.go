package classifier

import "fmt"

// Decision thresholds, in centimeters
const (
	SetosaMaxPetalLength     = 2.5
	SetosaMaxPetalWidth      = 1.0
	VersicolorMaxPetalLength = 5.0
	VersicolorMaxPetalWidth  = 1.8
	CompactMaxSepalLength    = 6.0
	CompactMinSepalWidth     = 2.8
)

// Branch identifiers, in evaluation order
const (
	BranchSetosa            = "setosa"
	BranchVersicolorCompact = "versicolor-compact"
	BranchVersicolor        = "versicolor"
	BranchVirginica         = "virginica"
)

// Fixed confidence per branch. Not a probability.
var branchResults = map[string]Result{
	BranchSetosa:            branchResult(BranchSetosa, Setosa, 95),
	BranchVersicolorCompact: branchResult(BranchVersicolorCompact, Versicolor, 88),
	BranchVersicolor:        branchResult(BranchVersicolor, Versicolor, 82),
	BranchVirginica:         branchResult(BranchVirginica, Virginica, 90),
}

func branchResult(branch string, s Species, confidence int) Result {
	return Result{Species: s, Confidence: confidence, Category: s.Category(), Branch: branch}
}

// ResultFor returns the fixed result attached to a branch
func ResultFor(branch string) (Result, bool) {
	r, ok := branchResults[branch]
	return r, ok
}

// Classify runs the decision tree. It accepts any four numbers and never fails;
// callers validate positivity first.
func Classify(m Measurement) Result {
	return branchResults[decide(m)]
}

func decide(m Measurement) string {
	if m.PetalLength < SetosaMaxPetalLength && m.PetalWidth < SetosaMaxPetalWidth {
		return BranchSetosa
	}

	if m.PetalLength < VersicolorMaxPetalLength && m.PetalWidth < VersicolorMaxPetalWidth {
		if m.SepalLength < CompactMaxSepalLength && m.SepalWidth > CompactMinSepalWidth {
			return BranchVersicolorCompact
		}
		return BranchVersicolor
	}

	return BranchVirginica
}

// Native is the Classifier backed by Classify
type Native struct{}

// Classify implements Classifier
func (Native) Classify(m Measurement) Result {
	return Classify(m)
}

// Engine names accepted by New
const (
	EngineNative = "native"
	EngineCEL    = "cel"
)

// New returns the classifier for an engine name
func New(engine string) (Classifier, error) {
	switch engine {
	case EngineNative, "":
		return Native{}, nil
	case EngineCEL:
		en, err := NewRuleEngine()
		if err != nil {
			return nil, err
		}
		return en, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", engine)
	}
}
