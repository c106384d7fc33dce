package page

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"twinkscan/pkg/factions"
)

const profileModal = `<html><body>
<div class="card">
  <div class="card-header">Nick_Name</div>
  <ul class="list-group">
    <li class="list-group-item">ID: 48213</li>
    <li class="list-group-item">Уровень: 12</li>
    <li class="list-group-item">Фракция: Bloods (rank: 3)</li>
  </ul>
</div>
<div class="card">
  <ul class="list-group">
    <li class="list-group-item">ID: 48213</li>
    <li class="list-group-item">Фракция: LSPD (rank: 10)</li>
  </ul>
</div>
<div class="card">
  <ul class="list-group">
    <li class="list-group-item">ID: 48213</li>
    <li class="list-group-item">Фракция: -</li>
  </ul>
</div>
<div class="card">
  <ul class="list-group">
    <li class="list-group-item">Фракция: The Families</li>
  </ul>
</div>
</body></html>`

func TestParseCards(t *testing.T) {
	snap, err := NewSnapshot("https://example.test", "", profileModal)
	require.NoError(t, err)

	records := ParseCards(snap)
	assert.Equal(t, []factions.Record{
		{Faction: "Bloods", SubjectID: "48213"},
		{Faction: "LSPD", SubjectID: "48213"},
	}, records)
}

func TestParseCardsLastFactionLineWins(t *testing.T) {
	html := `<div class="card">
		<span>ID: 7</span>
		<div class="list-group-item">Фракция: FIB</div>
		<div class="list-group-item">Фракция: Мэрия ЛС (rank: 2)</div>
	</div>`
	snap, err := NewSnapshot("", "", html)
	require.NoError(t, err)

	assert.Equal(t, []factions.Record{{Faction: "Мэрия ЛС", SubjectID: "7"}}, ParseCards(snap))
}

func TestParseCardsEmpty(t *testing.T) {
	snap, err := NewSnapshot("", "", "<html><body><p>nothing</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, ParseCards(snap))
}

func TestSnapshot(t *testing.T) {
	snap, err := NewSnapshot("https://example.test/x", "", RosterHTML(NewFake(3).Items, "<p>footer</p>"))
	require.NoError(t, err)

	assert.Equal(t, "Members", snap.Title)
	assert.Equal(t, 3, snap.Count(`a.link_lock[onclick*="Mi.showMemberChars"]`))
	assert.Contains(t, snap.Text(), "Member 2")
	assert.Contains(t, snap.Text(), "footer")

	scripted, err := NewSnapshot("", "", "<body><script>var challenge = 1;</script><p>shown</p></body>")
	require.NoError(t, err)
	assert.Equal(t, "shown", scripted.Text())

	titled, err := NewSnapshot("", "Given", "<title>Ignored</title>")
	require.NoError(t, err)
	assert.Equal(t, "Given", titled.Title)
}

func TestFakeAdapter(t *testing.T) {
	ctx := context.Background()
	f := NewFake(2)
	f.Cards[1] = []factions.Record{{Faction: "FIB", SubjectID: "1"}}

	var _ Adapter = f

	items, err := f.QueryWorklist(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, f.Hover(ctx, items[1]))
	require.NoError(t, f.Click(ctx, items[1]))
	records, err := f.ExtractCards(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	reloaded := false
	f.OnReload = func(*Fake) { reloaded = true }
	require.NoError(t, f.Reload(ctx))

	assert.True(t, reloaded)
	assert.Equal(t, 1, f.Reloads())
	assert.Equal(t, []int{1}, f.Clicks())
	assert.Equal(t, []string{"query", "hover:1", "click:1", "extract", "reload"}, f.Events())
}
