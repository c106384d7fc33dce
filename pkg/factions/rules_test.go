package factions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(faction, id string) Record {
	return Record{Faction: faction, SubjectID: id}
}

func TestEvaluateScenarios(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		want    []string
	}{
		{
			name:    "crime and state",
			records: []Record{rec("Bloods", "1"), rec("LSPD", "1")},
			want: []string{
				"offwarn 1 Твинк: Bloods | LSPD // by kenny<br>",
				"offwarn 1 Твинк: LSPD | Bloods // by kenny<br>",
			},
		},
		{
			name:    "press with one crime faction is allowed",
			records: []Record{rec("Bloods", "2"), rec("Weazel News", "2")},
			want:    nil,
		},
		{
			name:    "two crime factions",
			records: []Record{rec("Русская Мафия", "3"), rec("The Families", "3")},
			want: []string{
				"offwarn 3 Твинк: Русская Мафия | The Families // by kenny<br>",
				"offwarn 3 Твинк: The Families | Русская Мафия // by kenny<br>",
			},
		},
		{
			name:    "same state faction twice",
			records: []Record{rec("FIB", "4"), rec("FIB", "4")},
			want: []string{
				"offwarn 4 Твинк: FIB | FIB // by kenny<br>",
			},
		},
		{
			name:    "single crime faction",
			records: []Record{rec("Bloods", "5")},
			want:    nil,
		},
		{
			name:    "two different state factions",
			records: []Record{rec("LSPD", "6"), rec("FIB", "6")},
			want:    nil,
		},
		{
			name:    "unknown factions are ignored",
			records: []Record{rec("Taxi Co", "7"), rec("Bloods", "7")},
			want:    nil,
		},
		{
			name:    "press twice with crime is flagged",
			records: []Record{rec("Bloods", "8"), rec("Weazel News", "8"), rec("Weazel News", "8")},
			want: []string{
				"offwarn 8 Твинк: Bloods | Weazel News | Weazel News // by kenny<br>",
				"offwarn 8 Твинк: Weazel News | Bloods | Weazel News // by kenny<br>",
			},
		},
		{
			name:    "press with a second state faction is flagged",
			records: []Record{rec("Bloods", "9"), rec("Weazel News", "9"), rec("LS Army", "9")},
			want: []string{
				"offwarn 9 Твинк: Bloods | Weazel News | LS Army // by kenny<br>",
				"offwarn 9 Твинк: Weazel News | Bloods | LS Army // by kenny<br>",
				"offwarn 9 Твинк: LS Army | Bloods | Weazel News // by kenny<br>",
			},
		},
		{
			name:    "press with two crime factions is flagged",
			records: []Record{rec("Bloods", "10"), rec("Weazel News", "10"), rec("The Families", "10")},
			want: []string{
				"offwarn 10 Твинк: Bloods | Weazel News | The Families // by kenny<br>",
				"offwarn 10 Твинк: Weazel News | Bloods | The Families // by kenny<br>",
				"offwarn 10 Твинк: The Families | Bloods | Weazel News // by kenny<br>",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(DefaultCatalog(), "kenny")
			assert.Equal(t, tt.want, e.Evaluate(tt.records))
		})
	}
}

func TestEvaluateDeduplicates(t *testing.T) {
	e := NewEngine(DefaultCatalog(), "kenny")
	records := []Record{rec("Bloods", "1"), rec("LSPD", "1")}

	first := e.Evaluate(records)
	require.Len(t, first, 2)

	assert.Empty(t, e.Evaluate(records))
	assert.Equal(t, 2, e.Count())
	assert.Equal(t, first, e.Lines())
}

func TestEvaluateIsPure(t *testing.T) {
	records := []Record{rec("Bloods", "1"), rec("The Families", "1")}

	a := NewEngine(DefaultCatalog(), "kenny").Evaluate(records)
	b := NewEngine(DefaultCatalog(), "kenny").Evaluate(records)
	assert.Equal(t, a, b)
	assert.Equal(t, []Record{rec("Bloods", "1"), rec("The Families", "1")}, records)
}

func TestSeedSkipsPersistedLines(t *testing.T) {
	e := NewEngine(DefaultCatalog(), "kenny")
	e.Seed("offwarn 1 Твинк: Bloods | LSPD // by kenny<br>")

	added := e.Evaluate([]Record{rec("Bloods", "1"), rec("LSPD", "1")})
	assert.Equal(t, []string{"offwarn 1 Твинк: LSPD | Bloods // by kenny<br>"}, added)
	assert.Equal(t, []string{
		"offwarn 1 Твинк: Bloods | LSPD // by kenny<br>",
		"offwarn 1 Твинк: LSPD | Bloods // by kenny<br>",
	}, e.Lines())
}

func TestNicknameIsPartOfLine(t *testing.T) {
	e := NewEngine(DefaultCatalog(), "kenny")
	records := []Record{rec("Bloods", "1"), rec("LSPD", "1")}
	require.Len(t, e.Evaluate(records), 2)

	e.SetNickname("admin")
	assert.Equal(t, "admin", e.Nickname())
	assert.Len(t, e.Evaluate(records), 2)
}

func TestDecide(t *testing.T) {
	d := Decide(DefaultCatalog(), []Record{rec("Bloods", "1"), rec("FIB", "1"), rec("FIB", "1")})
	assert.True(t, d.HasCrime)
	assert.True(t, d.HasState)
	assert.Equal(t, []string{"Bloods"}, d.UniqueCrime)
	assert.Equal(t, []string{"FIB"}, d.RepeatedState)
	assert.Equal(t, 2, d.StateCount)
	assert.True(t, d.Flagged())

	press := Decide(DefaultCatalog(), []Record{rec("Bloods", "2"), rec("Weazel News", "2")})
	assert.True(t, press.Violation)
	assert.True(t, press.PressExemption)
	assert.False(t, press.Flagged())
}

func TestSplitLines(t *testing.T) {
	stored := "offwarn 1 Твинк: A | B // by x<br>offwarn 1 Твинк: B | A // by x<br>\n"
	assert.Equal(t, []string{
		"offwarn 1 Твинк: A | B // by x<br>",
		"offwarn 1 Твинк: B | A // by x<br>",
	}, SplitLines(stored))
	assert.Empty(t, SplitLines(""))
}
