package currency

import (
	"strconv"
	"strings"
)

type wordTable struct {
	zero    string
	units   [10]string
	teens   [10]string
	tens    [10]string
	hundred string
	groups  []group
}

type group struct {
	size uint64
	name string
}

var englishTable = wordTable{
	zero:    "Zero",
	units:   [10]string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"},
	teens:   [10]string{"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"},
	tens:    [10]string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"},
	hundred: "Hundred",
	groups: []group{
		{size: 1_000_000_000, name: "Billion"},
		{size: 1_000_000, name: "Million"},
		{size: 1_000, name: "Thousand"},
	},
}

// Lakh and crore grouping.
var nepaliTable = wordTable{
	zero:    "शून्य",
	units:   [10]string{"", "एक", "दुई", "तीन", "चार", "पाँच", "छ", "सात", "आठ", "नौ"},
	teens:   [10]string{"दश", "एघार", "बाह्र", "तेह्र", "चौध", "पन्ध्र", "सोह्र", "सत्र", "अठार", "उन्नाइस"},
	tens:    [10]string{"", "", "बीस", "तीस", "चालीस", "पचास", "साठी", "सत्तरी", "असी", "नब्बे"},
	hundred: "सय",
	groups: []group{
		{size: 10_000_000, name: "करोड"},
		{size: 100_000, name: "लाख"},
		{size: 1_000, name: "हजार"},
	},
}

func (t *wordTable) spell(n uint64) string {
	if n == 0 {
		return t.zero
	}
	var words []string
	t.appendWords(&words, n)
	return strings.Join(words, " ")
}

func (t *wordTable) appendWords(words *[]string, n uint64) {
	for _, g := range t.groups {
		if n >= g.size {
			t.appendWords(words, n/g.size)
			*words = append(*words, g.name)
			n %= g.size
		}
	}
	if n >= 100 {
		*words = append(*words, t.units[n/100], t.hundred)
		n %= 100
	}
	switch {
	case n >= 20:
		*words = append(*words, t.tens[n/10])
		if n%10 > 0 {
			*words = append(*words, t.units[n%10])
		}
	case n >= 10:
		*words = append(*words, t.teens[n-10])
	case n > 0:
		*words = append(*words, t.units[n])
	}
}

func spellEnglish(whole, cents uint64, name string) string {
	var b strings.Builder
	b.WriteString(englishTable.spell(whole))
	if cents > 0 {
		b.WriteString(" and ")
		b.WriteString(strconv.FormatUint(cents, 10))
		b.WriteString("/100")
	}
	b.WriteString(" ")
	b.WriteString(name)
	if whole != 1 {
		b.WriteString("s")
	}
	b.WriteString(" Only")
	return b.String()
}

func spellNepali(whole, paisa uint64) string {
	var b strings.Builder
	b.WriteString(nepaliTable.spell(whole))
	if paisa > 0 {
		b.WriteString(" र ")
		b.WriteString(nepaliTable.spell(paisa))
		b.WriteString(" पैसा")
	}
	b.WriteString(" मात्र")
	return b.String()
}
