package listing

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var toneOpeners = map[string]string{
	"warm":    "Made with care",
	"playful": "A little bit of handmade joy",
	"elegant": "Quietly refined",
	"rustic":  "Honest and hand-finished",
	"minimal": "Simple by design",
}

// titleCase upper-cases word starts; a Caser is stateful so one is built per call
func titleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}

// Fallback builds deterministic listing copy from the request alone
func Fallback(req Request) Listing {
	req.normalize()
	name := req.Name
	category := req.Category
	if category == "" {
		category = "handmade goods"
	}
	opener, ok := toneOpeners[req.Tone]
	if !ok {
		opener = toneOpeners["warm"]
	}

	title := fmt.Sprintf("Handmade %s", titleCase(name))
	if req.Materials != "" {
		title = fmt.Sprintf("Handmade %s in %s", titleCase(name), firstMaterial(req.Materials))
	}

	short := fmt.Sprintf("%s, this %s is crafted by hand by an independent artisan.", opener, strings.ToLower(name))
	if req.Materials != "" {
		short += fmt.Sprintf(" Made from %s.", req.Materials)
	}

	features := []string{
		"Handcrafted by an independent artisan",
		"Each piece is unique with small natural variations",
		fmt.Sprintf("Part of our %s collection", strings.ToLower(category)),
	}
	if req.Materials != "" {
		features = append(features, fmt.Sprintf("Made from %s", req.Materials))
	}

	specs := map[string]string{"Category": category, "Handmade": "Yes"}
	if req.Materials != "" {
		specs["Materials"] = req.Materials
	}
	if req.Price > 0 {
		specs["Price"] = fmt.Sprintf("%.2f", req.Price)
	}

	story := fmt.Sprintf("Every %s starts at the maker's bench. %s", strings.ToLower(name),
		"It is shaped slowly, checked by eye and hand, and finished only when it feels right.")
	if req.Notes != "" {
		story += " " + req.Notes
	}

	return Listing{
		Title:            title,
		ShortDescription: short,
		Features:         features,
		Specs:            specs,
		Tags:             buildTags(name, category, req.Materials),
		Story:            story,
	}
}

func firstMaterial(materials string) string {
	parts := strings.FieldsFunc(materials, func(r rune) bool { return r == ',' || r == ';' || r == '/' })
	if len(parts) == 0 {
		return materials
	}
	return strings.TrimSpace(parts[0])
}

func buildTags(name, category, materials string) []string {
	set := map[string]struct{}{"handmade": {}, "artisan": {}}
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if len(s) > 2 {
			set[s] = struct{}{}
		}
	}
	for _, w := range strings.Fields(name) {
		add(w)
	}
	add(category)
	for _, m := range strings.FieldsFunc(materials, func(r rune) bool { return r == ',' || r == ';' || r == '/' }) {
		add(m)
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	if len(tags) > 8 {
		tags = tags[:8]
	}
	return tags
}
