package domain

// TeamColor is the identity token a team wears on the floor. Names must be
// unique among live teams; the palette is finite and identities return to it
// when the holding team retires.
type TeamColor struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// DefaultPalette mirrors the pinnie set the gym keeps on hand.
var DefaultPalette = []TeamColor{
	{Name: "Red", Hex: "#E53935"},
	{Name: "Blue", Hex: "#1E88E5"},
	{Name: "Green", Hex: "#43A047"},
	{Name: "Yellow", Hex: "#FDD835"},
	{Name: "Orange", Hex: "#FB8C00"},
	{Name: "Purple", Hex: "#8E24AA"},
	{Name: "Pink", Hex: "#D81B60"},
	{Name: "Teal", Hex: "#00897B"},
	{Name: "Black", Hex: "#212121"},
	{Name: "White", Hex: "#FAFAFA"},
	{Name: "Maroon", Hex: "#6D1B1B"},
	{Name: "Gray", Hex: "#757575"},
}
