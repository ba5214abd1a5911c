package pipeline

// DefaultNiches are the search phrases used when a run names none
func DefaultNiches() []string {
	return []string{
		// General
		"business tips",
		"personal finance advice",
		"productivity tips",
		"fitness training",
		"cooking recipes tutorial",
		"tech reviews",
		"education tutorial",
		"self improvement motivation",
		"digital marketing tips",
		"real estate investing",
		"entrepreneurship advice",
		// Film / TV essay
		"film analysis essay",
		"film critique essay",
		"movie breakdown essay",
		"movie video essay",
		"movie retrospective",
		"horror film essay",
		"superhero movie analysis",
		"animated movie analysis",
		"cinema analysis",
		"tv show video essay",
		"tv show analysis",
		// Retro gaming
		"retro gaming review",
		"retro game analysis",
		"retro game history",
		"old game review commentary",
		"ps1 ps2 game review",
		"forgotten games retrospective",
		"obscure video game review",
		"video game essay",
		"gaming nostalgia",
		// Professional explainers
		"accounting explained",
		"bookkeeping tutorial",
		"legal advice",
		"psychology explained",
		"therapist explains",
		// Home / real estate
		"home renovation",
		"house flipping",
	}
}
