// Package catalog is the single source of truth for the title roster:
// which titles exist, their display order, their in-game effects and which
// of them ordinary players may request through the public surfaces.
//
// The roster is fixed at compile time; titles are never created or
// destroyed at runtime.
package catalog

import "fmt"

// Title describes one grantable role.
type Title struct {
	Name         string
	Effects      string
	ImageURL     string
	IconFilename string
}

var ordered = []Title{
	{
		Name:         "Guardian of Harmony",
		Effects:      "All benders' ATK +5%, All benders' DEF +5%, All Benders' recruiting speed +15%",
		ImageURL:     "https://cdn.discordapp.com/attachments/1409793076955840583/1409793727018569758/guardian_harmony.png",
		IconFilename: "guardian_harmony.png",
	},
	{
		Name:         "Guardian of Air",
		Effects:      "All Resource Gathering Speed +20%, All Resource Production +20%",
		ImageURL:     "https://cdn.discordapp.com/attachments/1409793076955840583/1409793463817605181/guardian_air.png",
		IconFilename: "guardian_air.png",
	},
	{
		Name:         "Guardian of Water",
		Effects:      "All Benders' recruiting speed +15%",
		ImageURL:     "https://cdn.discordapp.com/attachments/1409793076955840583/1409793588778369104/guardian_water.png",
		IconFilename: "guardian_water.png",
	},
	{
		Name:         "Guardian of Earth",
		Effects:      "Construction Speed +10%, Research Speed +10%",
		ImageURL:     "https://cdn.discordapp.com/attachments/1409793076955840583/1409794927730229278/guardian_earth.png",
		IconFilename: "guardian_earth.png",
	},
	{
		Name:         "Guardian of Fire",
		Effects:      "All benders' ATK +5%, All benders' DEF +5%",
		ImageURL:     "https://cdn.discordapp.com/attachments/1409793076955840583/1409794024948367380/guardian_fire.png",
		IconFilename: "guardian_fire.png",
	},
	{
		Name:         "Architect",
		Effects:      "Construction Speed +10%",
		ImageURL:     "https://cdn.discordapp.com/attachments/1409793076955840583/1409796581661605969/architect.png",
		IconFilename: "architect.png",
	},
	{
		Name:         "General",
		Effects:      "All benders' ATK +5%",
		ImageURL:     "https://cdn.discordapp.com/attachments/1409793076955840583/1409796597277266000/general.png",
		IconFilename: "general.png",
	},
	{
		Name:         "Governor",
		Effects:      "All Benders' recruiting speed +10%",
		ImageURL:     "https://cdn.discordapp.com/attachments/1409793076955840583/1409796936227356723/governor.png",
		IconFilename: "governor.png",
	},
	{
		Name:         "Prefect",
		Effects:      "Research Speed +10%",
		ImageURL:     "https://cdn.discordapp.com/attachments/1409793076955840583/1409797574763741205/prefect.png",
		IconFilename: "prefect.png",
	},
}

// requestable lists the titles open to general (non-privileged) requests.
// Guardian titles are assigned by admins only.
var requestable = map[string]struct{}{
	"Architect": {},
	"General":   {},
	"Governor":  {},
	"Prefect":   {},
}

var byName = func() map[string]Title {
	m := make(map[string]Title, len(ordered))
	for _, t := range ordered {
		if _, dup := m[t.Name]; dup {
			panic(fmt.Sprintf("catalog: duplicate title %q", t.Name))
		}
		m[t.Name] = t
	}
	return m
}()

// All returns every title in catalog-declared display order.
func All() []Title {
	out := make([]Title, len(ordered))
	copy(out, ordered)
	return out
}

// Names returns all title names in display order.
func Names() []string {
	out := make([]string, len(ordered))
	for i, t := range ordered {
		out[i] = t.Name
	}
	return out
}

// Get looks up a title by exact name.
func Get(name string) (Title, bool) {
	t, ok := byName[name]
	return t, ok
}

// Contains reports whether name is a cataloged title.
func Contains(name string) bool {
	_, ok := byName[name]
	return ok
}

// IsRequestable reports whether ordinary players may request the title.
func IsRequestable(name string) bool {
	_, ok := requestable[name]
	return ok
}
