package scoring

import (
	"regexp"
	"sort"
	"strings"
)

// tagMatcher binds one tag to a pattern over normalized title text
type tagMatcher struct {
	tag     string
	pattern *regexp.Regexp
}

func matcher(tag, expr string) tagMatcher {
	return tagMatcher{tag: tag, pattern: regexp.MustCompile(expr)}
}

// rider dictionary, entity tags used for the importance entity bonus
var riderMatchers = []tagMatcher{
	matcher("rider:jett-lawrence", `\bjett lawrence\b`),
	matcher("rider:hunter-lawrence", `\bhunter lawrence\b`),
	matcher("rider:chase-sexton", `\b(chase )?sexton\b`),
	matcher("rider:eli-tomac", `\b(eli )?tomac\b`),
	matcher("rider:cooper-webb", `\bcooper webb\b|\bwebb\b`),
	matcher("rider:ken-roczen", `\b(ken )?roczen\b`),
	matcher("rider:jason-anderson", `\bjason anderson\b`),
	matcher("rider:aaron-plessinger", `\bplessinger\b`),
	matcher("rider:justin-barcia", `\bbarcia\b`),
	matcher("rider:dylan-ferrandis", `\bferrandis\b`),
	matcher("rider:haiden-deegan", `\b(haiden )?deegan\b`),
	matcher("rider:jo-shimoda", `\bshimoda\b`),
	matcher("rider:levi-kitchen", `\blevi kitchen\b`),
	matcher("rider:tom-vialle", `\bvialle\b`),
	matcher("rider:jorge-prado", `\bjorge prado\b|\bprado\b`),
	matcher("rider:tim-gajser", `\bgajser\b`),
	matcher("rider:jeffrey-herlings", `\bherlings\b`),
}

// organization and team dictionary
var orgMatchers = []tagMatcher{
	matcher("org:ama", `\bama\b`),
	matcher("org:fim", `\bfim\b`),
	matcher("org:supercross", `\bsupercross\b|\bsx\b`),
	matcher("org:pro-motocross", `\bpro motocross\b|\bnationals\b`),
	matcher("org:mxgp", `\bmxgp\b`),
	matcher("org:smx", `\bsmx\b`),
	matcher("team:honda", `\bhonda\b|\bhrc\b`),
	matcher("team:yamaha", `\byamaha\b`),
	matcher("team:kawasaki", `\bkawasaki\b`),
	matcher("team:ktm", `\bktm\b`),
	matcher("team:husqvarna", `\bhusqvarna\b`),
	matcher("team:gasgas", `\bgasgas\b|\bgas gas\b`),
	matcher("team:suzuki", `\bsuzuki\b`),
	matcher("team:triumph", `\btriumph\b`),
	matcher("team:stark", `\bstark\b`),
}

// topic dictionary, buckets matching the editorial categories
var topicMatchers = []tagMatcher{
	matcher("topic:injuries", `injur|hurt|surgery|fract|broken`),
	matcher("topic:results", `result|podium|winner|standings|qualifying|main event`),
	matcher("topic:silly-season", `rumor|\bsigns?\b|contract|team change|moves? to`),
	matcher("topic:media", `podcast|youtube|interview|episode`),
	matcher("topic:industry", `sponsor|brand|launch|industry|partnership`),
	matcher("topic:tech", `\bspec\b|engine|suspension|prototype|chassis`),
	matcher("topic:gear", `\bgear\b|helmet|boots?\b|goggles|review`),
	matcher("topic:racing", `\brace\b|track|round|schedule|gate drop|moto\b`),
}

// Tags derives the deterministic tag set for a title. Pure and idempotent:
// the same title always yields the same sorted set, no duplicates.
func Tags(title string) []string {
	t := normalize(title)
	if t == "" {
		return nil
	}

	set := make(map[string]struct{})
	for _, group := range [][]tagMatcher{riderMatchers, orgMatchers, topicMatchers} {
		for _, m := range group {
			if m.pattern.MatchString(t) {
				set[m.tag] = struct{}{}
			}
		}
	}

	if len(set) == 0 {
		return nil
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// EntityCount returns the number of entity (rider) tags in a tag set
func EntityCount(tags []string) int {
	count := 0
	for _, tag := range tags {
		if strings.HasPrefix(tag, "rider:") {
			count++
		}
	}
	return count
}
