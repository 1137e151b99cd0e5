package classifier

import (
	"math"
	"testing"
)

func m(sl, sw, pl, pw float64) Measurement {
	return Measurement{SepalLength: sl, SepalWidth: sw, PetalLength: pl, PetalWidth: pw}
}

// TestClassifyScenarios checks well-known flowers against the expected species
func TestClassifyScenarios(t *testing.T) {
	testCases := []struct {
		name       string
		input      Measurement
		species    Species
		confidence int
		category   Category
	}{
		{"Typical setosa", m(5.1, 3.5, 1.4, 0.2), Setosa, 95, CategorySetosa},
		{"Compact versicolor", m(5.9, 3.0, 4.2, 1.5), Versicolor, 88, CategoryVersicolor},
		{"Petal length on virginica boundary", m(6.3, 2.5, 5.0, 1.9), Virginica, 90, CategoryVirginica},
		{"Long sepal versicolor", m(6.4, 3.2, 4.5, 1.5), Versicolor, 82, CategoryVersicolor},
		{"Narrow sepal versicolor", m(5.5, 2.3, 4.0, 1.3), Versicolor, 82, CategoryVersicolor},
		{"Wide petal virginica", m(6.5, 3.0, 4.8, 1.8), Virginica, 90, CategoryVirginica},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.input)
			if got.Species != tc.species {
				t.Errorf("Species = %q, want %q", got.Species, tc.species)
			}
			if got.Confidence != tc.confidence {
				t.Errorf("Confidence = %d, want %d", got.Confidence, tc.confidence)
			}
			if got.Category != tc.category {
				t.Errorf("Category = %q, want %q", got.Category, tc.category)
			}
		})
	}
}

// TestClassifySetosaIgnoresSepal verifies small petals are Setosa whatever the sepals are
func TestClassifySetosaIgnoresSepal(t *testing.T) {
	sepals := []float64{0.1, 2.8, 6.0, 9.9, 100}
	for _, sl := range sepals {
		for _, sw := range sepals {
			got := Classify(m(sl, sw, 2.4, 0.9))
			if got.Species != Setosa || got.Confidence != 95 {
				t.Errorf("Classify(%v, %v, 2.4, 0.9) = %+v, want Setosa/95", sl, sw, got)
			}
		}
	}
}

// TestClassifyBoundaries verifies every threshold is a strict comparison
func TestClassifyBoundaries(t *testing.T) {
	testCases := []struct {
		name   string
		input  Measurement
		branch string
	}{
		{"Petal length at setosa limit", m(5.0, 3.0, 2.5, 0.5), BranchVersicolorCompact},
		{"Petal width at setosa limit", m(5.0, 3.0, 1.4, 1.0), BranchVersicolorCompact},
		{"Just below both setosa limits", m(5.0, 3.0, 2.4999, 0.9999), BranchSetosa},
		{"Petal length at versicolor limit", m(5.0, 3.0, 5.0, 1.0), BranchVirginica},
		{"Petal width at versicolor limit", m(5.0, 3.0, 3.0, 1.8), BranchVirginica},
		{"Sepal length at compact limit", m(6.0, 3.0, 4.0, 1.2), BranchVersicolor},
		{"Sepal width at compact limit", m(5.5, 2.8, 4.0, 1.2), BranchVersicolor},
		{"Just inside compact limits", m(5.9999, 2.8001, 4.0, 1.2), BranchVersicolorCompact},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.input)
			if got.Branch != tc.branch {
				t.Errorf("Branch = %q, want %q (result %+v)", got.Branch, tc.branch, got)
			}
		})
	}
}

// TestClassifyIsTotal verifies the function returns a result for any input
func TestClassifyIsTotal(t *testing.T) {
	inputs := []Measurement{
		{},
		m(-1, -1, -1, -1),
		m(math.NaN(), math.NaN(), math.NaN(), math.NaN()),
		m(math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)),
	}

	for _, in := range inputs {
		got := Classify(in)
		if _, ok := ResultFor(got.Branch); !ok {
			t.Errorf("Classify(%+v) returned unknown branch %q", in, got.Branch)
		}
	}

	// NaN fails every comparison, so it falls through to the final branch
	if got := Classify(m(math.NaN(), math.NaN(), math.NaN(), math.NaN())); got.Species != Virginica {
		t.Errorf("Classify(NaN...) = %q, want %q", got.Species, Virginica)
	}
}

// TestClassifyIdempotent verifies identical inputs give identical results
func TestClassifyIdempotent(t *testing.T) {
	in := m(5.9, 3.0, 4.2, 1.5)
	first := Classify(in)
	for i := 0; i < 10; i++ {
		if got := Classify(in); got != first {
			t.Fatalf("call %d returned %+v, first call returned %+v", i, got, first)
		}
	}
}

// TestSpeciesCategory verifies each species maps to its own category
func TestSpeciesCategory(t *testing.T) {
	seen := map[Category]Species{}
	for _, s := range []Species{Setosa, Versicolor, Virginica} {
		c := s.Category()
		if prev, dup := seen[c]; dup {
			t.Errorf("species %q and %q share category %q", prev, s, c)
		}
		seen[c] = s
	}

	for branch, res := range branchResults {
		if res.Category != res.Species.Category() {
			t.Errorf("branch %s: category %q does not match species %q", branch, res.Category, res.Species)
		}
		if res.Branch != branch {
			t.Errorf("branch %s: result carries branch %q", branch, res.Branch)
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", EngineNative, EngineCEL} {
		c, err := New(name)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		if got := c.Classify(m(5.1, 3.5, 1.4, 0.2)); got.Species != Setosa {
			t.Errorf("New(%q).Classify = %q, want %q", name, got.Species, Setosa)
		}
	}

	if _, err := New("neural"); err == nil {
		t.Error("New(\"neural\") should return an error")
	}
}
