package config

import "strings"

// Districts is the canonical list of the 33 districts of Telangana. It backs
// the choropleth backfill: every district appears in map output even when the
// filtered dataset has no rows for it.
var Districts = []string{
	"Adilabad", "Bhadradri Kothagudem", "Hanumakonda", "Hyderabad",
	"Jagtial", "Jangaon", "Jayashankar Bhupalpally", "Jogulamba Gadwal",
	"Kamareddy", "Karimnagar", "Khammam", "Komaram Bheem",
	"Mahabubabad", "Mahabubnagar", "Mancherial", "Medak",
	"Medchal-Malkajgiri", "Mulugu", "Nagarkurnool", "Nalgonda",
	"Narayanpet", "Nirmal", "Nizamabad", "Peddapalli",
	"Rajanna Sircilla", "Rangareddy", "Sangareddy", "Siddipet",
	"Suryapet", "Vikarabad", "Wanaparthy", "Warangal",
	"Yadadri Bhuvanagiri",
}

// districtNameMapping maps the spelling variants found in the source CSVs to
// canonical district names.
var districtNameMapping = map[string]string{
	"K.v. Rangareddy":       "Rangareddy",
	"K.V. Rangareddy":       "Rangareddy",
	"Ranga Reddy":           "Rangareddy",
	"RangaReddy":            "Rangareddy",
	"Medchal-malkajgiri":    "Medchal-Malkajgiri",
	"Medchal Malkajgiri":    "Medchal-Malkajgiri",
	"Jangoan":               "Jangaon",
	"Jagitial":              "Jagtial",
	"Warangal Urban":        "Warangal",
	"Warangal Rural":        "Warangal",
	"Komaram Bheem Asifabad": "Komaram Bheem",
}

// NormalizeDistrict standardizes a district name from the raw data.
// Unmapped names are returned trimmed; empty names become "Unknown".
func NormalizeDistrict(name string) string {
	cleaned := strings.TrimSpace(name)
	if cleaned == "" {
		return "Unknown"
	}
	if canonical, ok := districtNameMapping[cleaned]; ok {
		return canonical
	}
	return cleaned
}
