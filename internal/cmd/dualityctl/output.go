package dualityctl

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/duality/service"
)

// printCard writes the card line followed by one "key  label  value" row
// per stored value, sorted by key.
func printCard(w io.Writer, card service.Card) {
	title := card.Actor.Name
	if title == "" {
		title = card.Actor.ID
	}
	if card.Actor.GroupID != "" {
		title += " @ " + card.Actor.GroupID
	}
	fmt.Fprintln(w, title)
	if card.Text != "" {
		fmt.Fprintln(w, card.Text)
	}

	keys := make([]string, 0, len(card.Values))
	for key := range card.Values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, key := range keys {
		label := attribute.Label(attribute.Key(key))
		if strings.EqualFold(label, key) {
			label = ""
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", key, label, card.Values[key])
	}
	_ = tw.Flush()
}
