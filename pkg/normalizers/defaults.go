package normalizers

var defaultLegalSuffixes = []string{
	"inc", "incorporated",
	"llc", "llp", "lp", "pllc",
	"corp", "corporation",
	"co", "company",
	"ltd", "limited",
	"pc", "pa", "plc",
}

// DefaultSpec returns the built-in table content
func DefaultSpec() TableSpec {
	return TableSpec{
		EmployerAbbreviations: map[string]string{
			"&":      "and",
			"+":      "and",
			"assn":   "association",
			"assoc":  "association",
			"bros":   "brothers",
			"ctr":    "center",
			"cntr":   "center",
			"co":     "company",
			"corp":   "corporation",
			"dept":   "department",
			"dist":   "district",
			"elec":   "electric",
			"grp":    "group",
			"hlth":   "health",
			"hosp":   "hospital",
			"inc":    "incorporated",
			"inds":   "industries",
			"indus":  "industries",
			"intl":   "international",
			"int'l":  "international",
			"ltd":    "limited",
			"med":    "medical",
			"mfg":    "manufacturing",
			"mgmt":   "management",
			"mfrs":   "manufacturers",
			"natl":   "national",
			"nat'l":  "national",
			"svc":    "service",
			"svcs":   "services",
			"sys":    "systems",
			"transp": "transportation",
			"univ":   "university",
		},
		UnionAbbreviations: map[string]string{
			"&":     "and",
			"+":     "and",
			"amer":  "american",
			"assn":  "association",
			"assoc": "association",
			"bhd":   "brotherhood",
			"bro":   "brotherhood",
			"brhd":  "brotherhood",
			"cncl":  "council",
			"dc":    "district council",
			"dist":  "district",
			"elec":  "electrical",
			"emp":   "employees",
			"empl":  "employees",
			"empls": "employees",
			"fed":   "federation",
			"intl":  "international",
			"int'l": "international",
			"jc":    "joint council",
			"lu":    "local union",
			"loc":   "local",
			"natl":  "national",
			"nat'l": "national",
			"wkrs":  "workers",
			"wrkrs": "workers",
		},
		EmployerSuffixes: defaultLegalSuffixes,
		UnionSuffixes:    append([]string{"afl", "cio", "aflcio", "clc"}, defaultLegalSuffixes...),
		Stopwords:        []string{"the", "of", "and", "a"},
		Synonyms: map[string]string{
			"auto":       "automobile",
			"automotive": "automobile",
			"centre":     "center",
			"labour":     "labor",
			"theatre":    "theater",
		},
		Affiliations: []Affiliation{
			{Code: "AFSCME", Name: "American Federation of State County and Municipal Employees"},
			{Code: "AFT", Name: "American Federation of Teachers"},
			{Code: "CWA", Name: "Communications Workers of America"},
			{Code: "IAM", Name: "International Association of Machinists and Aerospace Workers", Aliases: []string{"iamaw", "machinists"}},
			{Code: "IBEW", Name: "International Brotherhood of Electrical Workers", Aliases: []string{"intl brotherhood elec workers"}},
			{Code: "IBT", Name: "International Brotherhood of Teamsters", Aliases: []string{"teamsters"}},
			{Code: "IUOE", Name: "International Union of Operating Engineers", Aliases: []string{"operating engineers"}},
			{Code: "LIUNA", Name: "Laborers International Union of North America"},
			{Code: "SEIU", Name: "Service Employees International Union"},
			{Code: "UAW", Name: "United Automobile Aerospace and Agricultural Implement Workers", Aliases: []string{"auto workers"}},
			{Code: "UFCW", Name: "United Food and Commercial Workers"},
			{Code: "USW", Name: "United Steelworkers", Aliases: []string{"steelworkers", "uswa"}},
		},
	}
}

// DefaultTables returns Tables built from DefaultSpec
func DefaultTables() *Tables {
	return NewTables(DefaultSpec())
}
