// Package scenario holds the fixed content of the "Factory 3 fire" exercise:
// the fact pool, the power table, the 5 Whys questions, step guides and the
// evidence cards handed out to teams.
package scenario

import (
	"fmt"
	"strings"
)

// Incident summary shown on the intro screen.
const (
	IncidentDate     = "8월 4일 오전 10:30"
	IncidentLocation = "3공장 생산라인"
	IncidentDamage   = "인명사고 발생 (전치 4주)"
	CEOOrder         = "1시간 내로 현상파악 → 문제정의 → 원인분석 → 해결방안 → 재발방지대책을 보고하게!"
)

// MinFacts is the number of facts a team must collect before defining the problem.
const MinFacts = 3

// FactPool is the list of statements students pick facts from.
// Some entries are distractors (opinions or unrelated complaints).
var FactPool = []string{
	"8월 4일 오전 10:30분경 화재 발생",
	"생산팀 박계장 전치 4주 화상 입음",
	"화재로 인해 공장 가동 전면 중단됨",
	"납기일은 8월 12일로 일주일 남음",
	"최근 공장 주변에 야생 고양이가 자주 출몰함",
	"박계장은 평소 안전모를 잘 쓰지 않음 (의견)",
	"3공장 사고 시점에 남은 생산량은 4,000 unit",
	"소화기가 작동하지 않아 초기 진압 실패",
	"구내식당 메뉴가 맛이 없어서 불만이 많음",
}

// IsFact reports whether s is one of the statements in FactPool.
func IsFact(s string) bool {
	for _, f := range FactPool {
		if f == s {
			return true
		}
	}
	return false
}

// MaxPowerWatts is the circuit limit of Factory 3. Exceeding it reproduces the overload.
const MaxPowerWatts = 16000

// Machine is one row of the power simulation table.
type Machine struct {
	Name   string `json:"name"`
	Count  int    `json:"count"`
	Watts  int    `json:"watts"`
	Active bool   `json:"active"`
}

// Load returns the wattage the machine contributes when active.
func (m Machine) Load() int {
	if !m.Active {
		return 0
	}
	return m.Count * m.Watts
}

// InitialMachines returns a fresh copy of the power table in its starting state.
// The starting total is under the limit; students must switch on the machines
// that were running at the time of the fire.
func InitialMachines() []Machine {
	return []Machine{
		{Name: "프레스 기계", Count: 2, Watts: 3000, Active: true},
		{Name: "용접기", Count: 2, Watts: 2500, Active: true},
		{Name: "컨베이어 벨트", Count: 1, Watts: 1500, Active: true},
		{Name: "작업장 조명", Count: 20, Watts: 50, Active: true},
		{Name: "대형 에어컨", Count: 2, Watts: 2000, Active: false},
		{Name: "전기 히터", Count: 3, Watts: 1000, Active: false},
	}
}

// TotalWatts sums the load of every active machine.
func TotalWatts(machines []Machine) int {
	total := 0
	for _, m := range machines {
		total += m.Load()
	}
	return total
}

// IsOverloaded reports whether the active load exceeds MaxPowerWatts.
func IsOverloaded(machines []Machine) bool {
	return TotalWatts(machines) > MaxPowerWatts
}

// WhyQuestion is one multiple-choice question of the 5 Whys analysis.
type WhyQuestion struct {
	Key     string
	Title   string
	Prompt  string
	Options []string
	Answer  string
}

// Whys are the two root-cause questions of the analysis step.
var Whys = []WhyQuestion{
	{
		Key:    "first",
		Title:  "Why 1. 인명피해 발생?",
		Prompt: "박계장은 왜 제때 대피하지 못했는가?",
		Options: []string{
			"대피 방송 시스템 고장",
			"비상구 앞 자재 적재로 탈출 지연",
			"안전화 미착용으로 인한 부상",
		},
		Answer: "비상구 앞 자재 적재로 탈출 지연",
	},
	{
		Key:    "second",
		Title:  "Why 2. 초기진압 실패?",
		Prompt: "왜 작은 불이 큰 화재로 번졌는가?",
		Options: []string{
			"소방차 진입로 부족",
			"소화기 노후화로 인한 작동 불량",
			"스프링클러 오작동",
		},
		Answer: "소화기 노후화로 인한 작동 불량",
	},
}

// IsOption reports whether answer is one of q's options.
func (q WhyQuestion) IsOption(answer string) bool {
	for _, o := range q.Options {
		if o == answer {
			return true
		}
	}
	return false
}

// IsCorrect reports whether answer is the expected root cause.
func (q WhyQuestion) IsCorrect(answer string) bool {
	return answer == q.Answer
}

// Guide is the learning guide shown when a step opens.
// Description is markdown.
type Guide struct {
	Title       string
	Concept     string
	Goal        string
	Description string
}

// Guides are keyed by wizard step name.
var Guides = map[string]Guide{
	"SITUATION": {
		Title:   "Step 1. 현상 파악",
		Concept: "Fact Finding",
		Goal:    "의견과 사실을 구분하여 핵심 사실을 3개 이상 수집한다.",
		Description: "보고서의 출발점은 **사실(Fact)** 입니다.\n\n" +
			"- 누가, 언제, 어디서, 무엇이 일어났는지 확인하세요.\n" +
			"- 추측이나 의견, 사고와 관계없는 정보는 제외하세요.",
	},
	"DEFINITION": {
		Title:   "Step 2. 문제 정의",
		Concept: "As-is / To-be Gap",
		Goal:    "현재 상태와 바람직한 상태의 차이를 문제로 정의한다.",
		Description: "문제란 **현재 모습(As-is)** 과 **바람직한 모습(To-be)** 의 차이입니다.\n\n" +
			"두 상태를 구체적인 숫자와 기한으로 적어 보세요.",
	},
	"ANALYSIS": {
		Title:   "Step 3. 원인 분석",
		Concept: "Simulation & 5 Whys",
		Goal:    "전력 과부하를 재현하고 인명피해와 초기진압 실패의 근본 원인을 찾는다.",
		Description: "직접 원인은 실험으로, 근본 원인은 **왜?** 를 반복해서 찾습니다.\n\n" +
			"1. 사고 당시 켜져 있던 기기를 켜서 16,000W 한계를 넘겨 보세요.\n" +
			"2. 두 가지 Why 질문에 답하세요.",
	},
	"SOLUTION": {
		Title:   "Step 4. 해결 방안",
		Concept: "Short-term & Prevention",
		Goal:    "납기 대응 방안과 재발 방지 대책을 함께 세운다.",
		Description: "당장의 문제(납기)와 장기적인 문제(재발)를 나누어 생각하세요.\n\n" +
			"대책은 **누가, 언제까지, 무엇을** 할지 드러나야 합니다.",
	},
}

// GuideFor returns the guide for a step and whether one exists.
func GuideFor(step string) (Guide, bool) {
	g, ok := Guides[step]
	return g, ok
}

// DefaultCardCount is the size of the built-in evidence card set.
const DefaultCardCount = 24

// DefaultInfoCards returns the built-in evidence card image paths.
// They are placeholders shipped in static/cards; a real deck is configured
// through scenario.info_cards.
func DefaultInfoCards() []string {
	cards := make([]string, 0, DefaultCardCount)
	for i := 1; i <= DefaultCardCount; i++ {
		cards = append(cards, fmt.Sprintf("/static/cards/card-%02d.svg", i))
	}
	return cards
}

// CardLabel names a card by its file name without extension, so
// "/static/cards/card-07.svg" is "card-07".
func CardLabel(src string) string {
	name := src[strings.LastIndex(src, "/")+1:]
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return name
}

// CardsForTeam returns the contiguous slice of cards handed to team (1-based).
// Cards are split as evenly as possible; the first len(cards)%totalTeams teams
// receive one extra card. Out-of-range teams receive nothing.
func CardsForTeam(cards []string, team, totalTeams int) []string {
	if totalTeams <= 0 || team < 1 || team > totalTeams || len(cards) == 0 {
		return nil
	}
	base := len(cards) / totalTeams
	extra := len(cards) % totalTeams

	idx := team - 1
	start := idx*base + min(idx, extra)
	size := base
	if idx < extra {
		size++
	}
	return cards[start : start+size]
}
