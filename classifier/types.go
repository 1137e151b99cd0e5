package classifier

// Species is one of the three Iris species the classifier can return
type Species string

const (
	Setosa     Species = "Iris Setosa"
	Versicolor Species = "Iris Versicolor"
	Virginica  Species = "Iris Virginica"
)

// Category is a display token used only to style a result
type Category string

const (
	CategorySetosa     Category = "setosa"
	CategoryVersicolor Category = "versicolor"
	CategoryVirginica  Category = "virginica"
)

// Category returns the display category for the species
func (s Species) Category() Category {
	switch s {
	case Setosa:
		return CategorySetosa
	case Versicolor:
		return CategoryVersicolor
	default:
		return CategoryVirginica
	}
}

// Measurement holds the four flower dimensions, in centimeters
type Measurement struct {
	SepalLength float64 `json:"sepalLength"`
	SepalWidth  float64 `json:"sepalWidth"`
	PetalLength float64 `json:"petalLength"`
	PetalWidth  float64 `json:"petalWidth"`
}

// Result is the outcome of one classification.
// Branch names the decision branch taken; it never changes Species or Confidence.
type Result struct {
	Species    Species  `json:"species"`
	Confidence int      `json:"confidence"`
	Category   Category `json:"category"`
	Branch     string   `json:"branch"`
}

// Classifier maps a measurement to a result. Implementations are pure.
type Classifier interface {
	Classify(m Measurement) Result
}
