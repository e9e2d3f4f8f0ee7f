package models

// Person represents a participant splitting the receipt.
// People exist only inside one session; there are no accounts.
type Person struct {
	// ID is the unique identifier for the person (UUID format).
	ID string `json:"id"`

	// Name is the display name (e.g., "Budi").
	Name string `json:"name"`
}
