package letter

import "time"

// Letter is an anonymous worry letter. Attention holds the anonIds of readers
// who empathized with it; the set never contains duplicates. A nonzero
// ColorIndex marks a paid decoration.
type Letter struct {
	ID          string    `json:"id"`
	AnonID      string    `json:"anonId"`
	Letter      string    `json:"letter"`
	WrittenDate time.Time `json:"writtenDate"`
	Attention   []string  `json:"attention"`
	ColorIndex  int       `json:"colorIndex"`
}
