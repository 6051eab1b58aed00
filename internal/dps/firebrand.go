package dps

import "strconv"

// Tome skill ids, chapters 1 to 5 of each tome.
var (
	tomeOfJustice  = []int{41258, 40635, 42449, 40015, 42898}
	tomeOfResolve  = []int{45022, 40679, 45128, 42008, 42925}
	tomeOfCourage  = []int{42986, 41968, 41836, 40988, 44455}
	tomeSkillIndex = indexTomes(tomeOfJustice, tomeOfResolve, tomeOfCourage)
)

func indexTomes(tomes ...[]int) map[int]struct{} {
	set := make(map[int]struct{})
	for _, tome := range tomes {
		for _, id := range tome {
			set[id] = struct{}{}
		}
	}
	return set
}

// FirebrandPages counts tome chapter casts of one Firebrand.
type FirebrandPages struct {
	Account    string         `json:"account"`
	Name       string         `json:"name"`
	FightTimeS float64        `json:"fightTime"`
	Pages      map[string]int `json:"firebrand_pages"`
}

func (t *Table) firebrand(f *Fight) {
	for i := range f.Log.Players {
		p := &f.Log.Players[i]
		if f.Skip[i] || p.Profession != "Firebrand" || len(p.Rotation) == 0 {
			continue
		}
		key := p.Key()
		pages, ok := t.Pages[key]
		if !ok {
			pages = &FirebrandPages{Account: p.Account, Name: p.Name, Pages: make(map[string]int)}
			t.Pages[key] = pages
		}
		pages.FightTimeS += p.ActiveTimeMS() / 1000
		for _, r := range p.Rotation {
			if _, ok := tomeSkillIndex[r.ID]; ok {
				pages.Pages[strconv.Itoa(r.ID)] += len(r.Skills)
			}
		}
	}
}

// PagesPerMinute returns chapter casts per minute of fight time.
func (fp *FirebrandPages) PagesPerMinute() float64 {
	if fp.FightTimeS <= 0 {
		return 0
	}
	var n int
	for _, c := range fp.Pages {
		n += c
	}
	return float64(n) / (fp.FightTimeS / 60)
}
