package exercise

// DefaultID is the ID of the exercise used when nothing has been selected.
const DefaultID = "2"

// Fallback is the 4-4-4-4 pattern used when no exercise is selected.
var Fallback = Exercise{
	ID:     "fallback",
	Title:  "Box Breathing",
	Inhale: 4,
	Hold1:  4,
	Exhale: 4,
	Hold2:  4,
}

// Defaults returns the built-in exercise set.
func Defaults() []Exercise {
	return []Exercise{
		{
			ID:               "1",
			Title:            "Deep Breathing",
			Inhale:           6,
			Hold1:            0,
			Exhale:           6,
			Hold2:            0,
			ShortDescription: "Calm your nervous system with slow, controlled breaths",
			Description:      "Diaphragmatic breathing that engages the diaphragm for full oxygen exchange and shifts the body toward rest.",
			Benefit:          "Reduces stress, lowers heart rate and blood pressure, improves focus and sleep.",
			Method:           "Inhale through the nose for 6 seconds letting the belly rise, exhale for 6 seconds letting it fall. Repeat for 5-10 minutes.",
			Symbol:           "🌙",
		},
		{
			ID:               "2",
			Title:            "Box Breathing",
			Inhale:           4,
			Hold1:            4,
			Exhale:           4,
			Hold2:            4,
			ShortDescription: "Four equal sides of breath for mental clarity and focus",
			Description:      "Square breathing in four equal parts to regulate the autonomic nervous system under pressure.",
			Benefit:          "Improves concentration, reduces anxiety and helps emotional control.",
			Method:           "Inhale for 4, hold for 4, exhale for 4, hold empty for 4. Repeat for 5-10 rounds.",
			Symbol:           "🕹",
		},
		{
			ID:               "3",
			Title:            "Quick Calm",
			Inhale:           3,
			Hold1:            1,
			Exhale:           3,
			Hold2:            1,
			ShortDescription: "Fast-acting technique for instant stress relief",
			Description:      "Short breath counts with brief pauses for moments that need immediate relief.",
			Benefit:          "Rapid anxiety relief that can be practised anywhere.",
			Method:           "Inhale for 3, hold for 1, exhale for 3, hold for 1. Practise for 1-3 minutes.",
			Symbol:           "💨",
		},
	}
}

// FindByID returns the exercise with the given ID from the list.
func FindByID(exercises []Exercise, id string) (Exercise, bool) {
	for _, e := range exercises {
		if e.ID == id {
			return e, true
		}
	}
	return Exercise{}, false
}
