package drivers

// Driver is a reference racer used to contextualize a reaction time.
type Driver struct {
	ID      string
	Name    string
	Team    string
	BenchMs int // typical race-start reaction, milliseconds
}

// Comparison relates a player's reaction time to the closest reference driver.
type Comparison struct {
	Driver  Driver
	DeltaMs int  // player minus driver; negative means the player was quicker
	Beat    bool // true when the player matched or beat the driver
}

// Reference times are approximate published race-start reactions.
var All = []Driver{
	{ID: "verstappen", Name: "Max Verstappen", Team: "Red Bull", BenchMs: 180},
	{ID: "leclerc", Name: "Charles Leclerc", Team: "Ferrari", BenchMs: 185},
	{ID: "hamilton", Name: "Lewis Hamilton", Team: "Ferrari", BenchMs: 190},
	{ID: "norris", Name: "Lando Norris", Team: "McLaren", BenchMs: 195},
	{ID: "alonso", Name: "Fernando Alonso", Team: "Aston Martin", BenchMs: 200},
	{ID: "russell", Name: "George Russell", Team: "Mercedes", BenchMs: 210},
	{ID: "piastri", Name: "Oscar Piastri", Team: "McLaren", BenchMs: 215},
	{ID: "sainz", Name: "Carlos Sainz", Team: "Williams", BenchMs: 225},
	{ID: "gasly", Name: "Pierre Gasly", Team: "Alpine", BenchMs: 240},
	{ID: "stroll", Name: "Lance Stroll", Team: "Aston Martin", BenchMs: 260},
}

// Compare returns the reference driver closest to the given reaction time.
func Compare(reactionMs int) Comparison {
	best := All[0]
	bestDiff := abs(reactionMs - best.BenchMs)
	for _, d := range All[1:] {
		if diff := abs(reactionMs - d.BenchMs); diff < bestDiff {
			best = d
			bestDiff = diff
		}
	}
	return Comparison{
		Driver:  best,
		DeltaMs: reactionMs - best.BenchMs,
		Beat:    reactionMs <= best.BenchMs,
	}
}

// Fastest returns the quickest reference driver.
func Fastest() Driver {
	best := All[0]
	for _, d := range All[1:] {
		if d.BenchMs < best.BenchMs {
			best = d
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
