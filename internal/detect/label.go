package detect

// Detection classes. Class-id ordering encodes priority: an animal box
// outranks a person box outranks a vehicle box; anything else is blank.
const (
	ClassAnimal  = 0
	ClassPerson  = 1
	ClassVehicle = 2
)

const (
	LabelAnimal  = "Animal"
	LabelPerson  = "Person"
	LabelVehicle = "Vehicle"
	LabelBlank   = "Blank"
)

// LabelForClass maps a class id to its folder label.
func LabelForClass(class int) string {
	switch class {
	case ClassAnimal:
		return LabelAnimal
	case ClassPerson:
		return LabelPerson
	case ClassVehicle:
		return LabelVehicle
	default:
		return LabelBlank
	}
}

// LabelForBoxes derives the single per-frame label: the minimum class id
// over surviving boxes. An empty set is blank.
func LabelForBoxes(boxes []Bbox) string {
	if len(boxes) == 0 {
		return LabelBlank
	}
	minClass := boxes[0].Class
	for _, b := range boxes[1:] {
		if b.Class < minClass {
			minClass = b.Class
		}
	}
	return LabelForClass(minClass)
}

// LabelPriority orders labels for sequence clustering; lower wins.
func LabelPriority(label string) int {
	switch label {
	case LabelAnimal:
		return 0
	case LabelPerson:
		return 1
	case LabelVehicle:
		return 2
	default:
		return 3
	}
}
