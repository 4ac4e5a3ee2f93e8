// Package query expands a persona and task into the context set of
// sub-queries used for semantic matching, and provides the intent predicate
// used by the relevance scorer.
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	daysRe   = regexp.MustCompile(`(\d+)\s*days?`)
	// Up to two qualifiers may sit between the count and the noun ("10 college friends").
	peopleRe = regexp.MustCompile(`(\d+)\s*((?:[a-z-]+\s+){0,2})(people|friends|persons?|colleagues)\b`)
)

// A qualifier naming a time unit means the count is a duration ("7 days with friends").
var timeUnits = map[string]bool{
	"day": true, "days": true,
	"night": true, "nights": true,
	"week": true, "weeks": true,
}

// intentPatterns are the topical categories a travel passage can satisfy.
var intentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(top \d+|best \d+|must-\w+|recommended)\b`),
	regexp.MustCompile(`\$\s*\d+|\b\d+\s*(€|euros?|dollars?|per|cost|price)\b`),
	regexp.MustCompile(`\b(located at|address|find it at|situated|near|downtown)\b`),
	regexp.MustCompile(`\b(open (from|until|till)|hours|closed on|book|reserve)\b`),
	regexp.MustCompile(`\b(group|together|friends|party of)\b`),
	regexp.MustCompile(`\b(activities|things to do|attractions|experiences)\b`),
	regexp.MustCompile(`\b(restaurants?|dining|cuisine|eat|food)\b`),
	regexp.MustCompile(`\b(hotels?|accommodations?|stay|hostels?|lodging)\b`),
	regexp.MustCompile(`\b(tips|advice|recommendation|guide)\b`),
	regexp.MustCompile(`\b(nightlife|entertainment|bars?|clubs?|evening)\b`),
}

// MinIntentMatches is the number of categories a travel passage must hit.
const MinIntentMatches = 2

// Understanding is the expanded view of a persona and task.
type Understanding struct {
	Persona string
	Task    string
	Days    int // 0 when the task names no day count
	People  int // 0 when the task names no head count
	Queries []string
}

// New expands persona and task into an Understanding.
func New(persona, task string) *Understanding {
	u := &Understanding{Persona: persona, Task: task}
	taskLower := strings.ToLower(task)
	u.Days = firstInt(daysRe, taskLower)
	u.People = headcount(taskLower)
	u.Queries = u.expand(taskLower)
	return u
}

// Combined returns the single "{persona}: {task}" query.
func (u *Understanding) Combined() string {
	return Combined(u.Persona, u.Task)
}

// Combined formats the combined persona/task query.
func Combined(persona, task string) string {
	return fmt.Sprintf("%s: %s", persona, task)
}

// IsTravel reports whether the persona or task describes trip planning.
func (u *Understanding) IsTravel() bool {
	return strings.Contains(strings.ToLower(u.Persona), "travel") ||
		strings.Contains(strings.ToLower(u.Task), "trip")
}

func (u *Understanding) travelPersona() bool {
	return strings.Contains(strings.ToLower(u.Persona), "travel")
}

func (u *Understanding) expand(taskLower string) []string {
	var queries []string
	if u.IsTravel() {
		base := u.Persona + " organizing"
		queries = append(queries, audienceQueries(base, taskLower, u.People)...)

		if u.Days > 0 {
			queries = append(queries,
				fmt.Sprintf("%s %d-day itinerary schedule daily plan", base, u.Days),
				fmt.Sprintf("%s efficient route %d days highlights", base, u.Days),
			)
		}
		if u.People > 4 {
			queries = append(queries,
				fmt.Sprintf("%s large group %d people group discounts activities", base, u.People),
				fmt.Sprintf("%s group transportation options %d people", base, u.People),
			)
		}
		queries = append(queries,
			base+" practical tips advice local information transportation",
			base+" costs prices budget planning expenses",
			base+" specific recommendations locations addresses booking",
		)
	}
	return append(queries, u.Combined())
}

// audienceQueries picks the audience profile by first keyword match.
func audienceQueries(base, taskLower string, people int) []string {
	headcount := ""
	if people > 0 {
		headcount = fmt.Sprintf(" %d people", people)
	}
	switch {
	case strings.Contains(taskLower, "college") || strings.Contains(taskLower, "student"):
		return []string{
			base + " affordable group activities nightlife entertainment young adults college students",
			base + " budget accommodations hostels group bookings" + headcount,
			base + " best restaurants bars clubs young people social venues",
		}
	case strings.Contains(taskLower, "family"):
		return []string{
			base + " family-friendly activities attractions families with children",
			base + " family accommodations hotels resorts" + headcount,
			base + " restaurants suitable for families kids menu",
		}
	case strings.Contains(taskLower, "business"):
		return []string{
			base + " business hotels conference venues business professionals",
			base + " professional dining meeting restaurants",
			base + " efficient transportation business districts",
		}
	default:
		return []string{
			base + " must-visit attractions activities things to do",
			base + " recommended hotels accommodations where to stay",
			base + " best restaurants local cuisine dining experiences",
		}
	}
}

// MatchesIntent reports whether text looks actionable for the persona.
// Non-travel personas always match.
func (u *Understanding) MatchesIntent(text string) bool {
	if !u.travelPersona() {
		return true
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, re := range intentPatterns {
		if re.MatchString(lower) {
			hits++
			if hits >= MinIntentMatches {
				return true
			}
		}
	}
	return false
}

func firstInt(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// headcount returns the first people count whose qualifiers name no time unit.
func headcount(taskLower string) int {
next:
	for _, m := range peopleRe.FindAllStringSubmatch(taskLower, -1) {
		for _, w := range strings.Fields(m[2]) {
			if timeUnits[w] {
				continue next
			}
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 0
}
