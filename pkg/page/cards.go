package page

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"twinkscan/pkg/factions"
)

// FactionLabel prefixes the faction line on a profile card
const FactionLabel = "Фракция:"

var (
	labelPattern = regexp.MustCompile(`Фракция:|\(rank: \d+\)`)
	idPattern    = regexp.MustCompile(`ID: (\d+)`)
)

// ParseCards extracts one record per .card container. Cards whose faction
// text is a single character or shorter, or that carry no ID, are dropped.
func ParseCards(snap *Snapshot) []factions.Record {
	var records []factions.Record

	snap.Doc().Find(".card").Each(func(_ int, card *goquery.Selection) {
		var faction string
		card.Find(".list-group-item").Each(func(_ int, item *goquery.Selection) {
			text := item.Text()
			if strings.Contains(text, FactionLabel) {
				faction = strings.TrimSpace(labelPattern.ReplaceAllString(text, ""))
			}
		})

		match := idPattern.FindStringSubmatch(card.Text())
		if len([]rune(faction)) <= 1 || match == nil {
			return
		}

		records = append(records, factions.Record{
			Faction:   faction,
			SubjectID: match[1],
		})
	})

	return records
}
