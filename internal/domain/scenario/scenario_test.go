package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsFact(t *testing.T) {
	if !IsFact(FactPool[0]) {
		t.Errorf("expected %q to be a fact", FactPool[0])
	}
	if IsFact("made up statement") {
		t.Error("unexpected fact match")
	}
}

// TestTotalWatts checks the starting table is under the limit and that
// switching on the air conditioners reproduces the overload.
func TestTotalWatts(t *testing.T) {
	machines := InitialMachines()
	if got := TotalWatts(machines); got != 13500 {
		t.Fatalf("initial TotalWatts = %d, want 13500", got)
	}
	if IsOverloaded(machines) {
		t.Fatal("initial table must not be overloaded")
	}

	machines[4].Active = true
	if got := TotalWatts(machines); got != 17500 {
		t.Errorf("TotalWatts with air conditioners = %d, want 17500", got)
	}
	if !IsOverloaded(machines) {
		t.Error("expected overload")
	}
}

func TestInitialMachines_ReturnsCopy(t *testing.T) {
	a := InitialMachines()
	a[0].Active = false
	b := InitialMachines()
	if !b[0].Active {
		t.Error("InitialMachines must return a fresh table")
	}
}

func TestWhyQuestion(t *testing.T) {
	for _, q := range Whys {
		if !q.IsOption(q.Answer) {
			t.Errorf("%s: answer %q is not an option", q.Key, q.Answer)
		}
		if !q.IsCorrect(q.Answer) {
			t.Errorf("%s: answer not recognised as correct", q.Key)
		}
		if q.IsCorrect(q.Options[0]) && q.Options[0] != q.Answer {
			t.Errorf("%s: wrong option accepted", q.Key)
		}
		if q.IsOption("") {
			t.Errorf("%s: empty answer accepted as option", q.Key)
		}
	}
}

func TestGuideFor(t *testing.T) {
	for _, step := range []string{"SITUATION", "DEFINITION", "ANALYSIS", "SOLUTION"} {
		g, ok := GuideFor(step)
		if !ok {
			t.Errorf("missing guide for %s", step)
			continue
		}
		if g.Title == "" || g.Goal == "" || g.Description == "" {
			t.Errorf("incomplete guide for %s", step)
		}
	}
	if _, ok := GuideFor("INTRO"); ok {
		t.Error("INTRO has no guide")
	}
}

// TestCardsForTeam checks even distribution with the remainder going to the first teams.
func TestCardsForTeam(t *testing.T) {
	cards := make([]string, 10)
	for i := range cards {
		cards[i] = string(rune('a' + i))
	}

	tests := []struct {
		name  string
		team  int
		teams int
		want  string
	}{
		{"first team gets extra", 1, 3, "abcd"},
		{"second team", 2, 3, "efg"},
		{"last team", 3, 3, "hij"},
		{"single team gets all", 1, 1, "abcdefghij"},
		{"more teams than cards, early team", 2, 12, "b"},
		{"more teams than cards, late team", 11, 12, ""},
		{"team out of range", 4, 3, ""},
		{"zero teams", 1, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(CardsForTeam(cards, tt.team, tt.teams), "")
			if got != tt.want {
				t.Errorf("CardsForTeam(%d, %d) = %q, want %q", tt.team, tt.teams, got, tt.want)
			}
		})
	}
}

func TestCardsForTeam_CoversAllCards(t *testing.T) {
	cards := DefaultInfoCards()
	for teams := 1; teams <= 12; teams++ {
		seen := 0
		for team := 1; team <= teams; team++ {
			seen += len(CardsForTeam(cards, team, teams))
		}
		if seen != len(cards) {
			t.Errorf("teams=%d: distributed %d cards, want %d", teams, seen, len(cards))
		}
	}
}

// The default deck must resolve to files under static/, or every card on the
// play page is a broken image.
func TestDefaultInfoCards_Shipped(t *testing.T) {
	root := filepath.Join("..", "..", "..", "static")
	cards := DefaultInfoCards()
	if len(cards) != DefaultCardCount {
		t.Fatalf("len = %d, want %d", len(cards), DefaultCardCount)
	}
	for _, src := range cards {
		rel, ok := strings.CutPrefix(src, "/static/")
		if !ok {
			t.Fatalf("%s is not served from /static/", src)
		}
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			t.Errorf("%s: %v", src, err)
		}
	}
}

func TestCardLabel(t *testing.T) {
	tests := map[string]string{
		"/static/cards/card-07.svg":              "card-07",
		"https://cdn.example.com/deck/A3.v2.png": "A3",
		"plain":                                  "plain",
		"":                                       "",
	}
	for src, want := range tests {
		if got := CardLabel(src); got != want {
			t.Errorf("CardLabel(%q) = %q, want %q", src, got, want)
		}
	}
}
