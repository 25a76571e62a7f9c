package teams

// Static franchise identity tables. These are configuration data, loaded once
// as immutable package-level maps; the resolver layers the live team list on
// top of them. Defunct lineages (Maroons, Americans, original Senators, ...)
// map onto the modern franchise that carries their history, which is how the
// upstream assets CDN files their logos.

// franchiseAbbrevs maps a franchise id to the modern logo abbreviation.
var franchiseAbbrevs = map[int]string{
	1: "MTL", 2: "MTL", 3: "OTT", 4: "TOR", 5: "TOR", 6: "BOS", 7: "MTL",
	8: "NYR", 9: "PIT", 10: "NYR", 11: "CHI", 12: "DET", 13: "SJS", 14: "LAK",
	15: "DAL", 16: "PHI", 17: "PIT", 18: "STL", 19: "BUF", 20: "VAN", 21: "CGY",
	22: "NYI", 23: "NJD", 24: "WSH", 25: "EDM", 26: "CAR", 27: "COL", 28: "ARI",
	29: "SJS", 30: "OTT", 31: "TBL", 32: "ANA", 33: "FLA", 34: "NSH", 35: "WPG",
	36: "CBJ", 37: "MIN", 38: "VGK", 39: "SEA", 40: "UTA",
}

// abbrevFranchiseIDs maps a modern abbreviation back to its franchise id.
// Draft records predate the franchise id fields, so draft resolution goes
// through this table.
var abbrevFranchiseIDs = map[string]int{
	"MTL": 1, "OTT": 3, "TOR": 5, "BOS": 6, "NYR": 10, "CHI": 11, "DET": 12,
	"SJS": 29, "LAK": 14, "DAL": 15, "PHI": 16, "PIT": 17, "STL": 18, "BUF": 19,
	"VAN": 20, "CGY": 21, "NYI": 22, "NJD": 23, "WSH": 24, "EDM": 25, "CAR": 26,
	"COL": 27, "ARI": 28, "TBL": 31, "ANA": 32, "FLA": 33, "NSH": 34, "WPG": 35,
	"CBJ": 36, "MIN": 37, "VGK": 38, "SEA": 39, "UTA": 40,
}

// abbrevFullNames maps an abbreviation to the canonical modern display name.
// Season records carry whatever name the team had at the time; the game
// client wants the current one.
var abbrevFullNames = map[string]string{
	"MTL": "Montréal Canadiens", "OTT": "Ottawa Senators", "TOR": "Toronto Maple Leafs",
	"BOS": "Boston Bruins", "NYR": "New York Rangers", "CHI": "Chicago Blackhawks",
	"DET": "Detroit Red Wings", "SJS": "San Jose Sharks", "LAK": "Los Angeles Kings",
	"DAL": "Dallas Stars", "PHI": "Philadelphia Flyers", "PIT": "Pittsburgh Penguins",
	"STL": "St. Louis Blues", "BUF": "Buffalo Sabres", "VAN": "Vancouver Canucks",
	"CGY": "Calgary Flames", "NYI": "New York Islanders", "NJD": "New Jersey Devils",
	"WSH": "Washington Capitals", "EDM": "Edmonton Oilers", "CAR": "Carolina Hurricanes",
	"COL": "Colorado Avalanche", "ARI": "Arizona Coyotes", "TBL": "Tampa Bay Lightning",
	"ANA": "Anaheim Ducks", "FLA": "Florida Panthers", "NSH": "Nashville Predators",
	"WPG": "Winnipeg Jets", "CBJ": "Columbus Blue Jackets", "MIN": "Minnesota Wild",
	"VGK": "Vegas Golden Knights", "SEA": "Seattle Kraken", "UTA": "Utah Mammoth",
}
