package warehouse

import (
	"encoding/json"
	"sort"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
)

// Document is the on-disk shape of magazyn.json.
type Document struct {
	Items map[string]*models.Item `json:"items"`
	Meta  Meta                    `json:"meta"`
}

// Meta holds document metadata. Keys other than the known ones are kept
// verbatim so other tools can store their own markers.
type Meta struct {
	Updated   string
	Order     []string
	ItemTypes []string
	Extra     map[string]json.RawMessage
}

type metaKnown struct {
	Updated   string   `json:"updated"`
	Order     []string `json:"order"`
	ItemTypes []string `json:"item_types"`
}

func (m Meta) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["updated"] = m.Updated
	out["order"] = nonNil(m.Order)
	out["item_types"] = nonNil(m.ItemTypes)
	return json.Marshal(out)
}

func (m *Meta) UnmarshalJSON(data []byte) error {
	var known metaKnown
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	delete(all, "updated")
	delete(all, "order")
	delete(all, "item_types")

	m.Updated = known.Updated
	m.Order = known.Order
	m.ItemTypes = known.ItemTypes
	m.Extra = nil
	if len(all) > 0 {
		m.Extra = all
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func newDocument() *Document {
	return &Document{
		Items: map[string]*models.Item{},
		Meta: Meta{
			Order:     []string{},
			ItemTypes: append([]string(nil), models.DefaultItemTypes...),
		},
	}
}

// normalize repairs a loaded document: meta.order becomes a permutation of
// the item ids, item ids match their keys and item types are seeded.
func (d *Document) normalize() {
	if d.Items == nil {
		d.Items = map[string]*models.Item{}
	}
	for id, it := range d.Items {
		if it == nil {
			delete(d.Items, id)
			continue
		}
		it.ID = id
	}
	if d.Meta.ItemTypes == nil {
		d.Meta.ItemTypes = append([]string(nil), models.DefaultItemTypes...)
	}

	seen := make(map[string]bool, len(d.Items))
	order := make([]string, 0, len(d.Items))
	for _, id := range d.Meta.Order {
		if d.Items[id] == nil || seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
	}

	var missing []string
	for id := range d.Items {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	d.Meta.Order = append(order, missing...)
}

func (d *Document) remove(id string) {
	delete(d.Items, id)
	for i, x := range d.Meta.Order {
		if x == id {
			d.Meta.Order = append(d.Meta.Order[:i], d.Meta.Order[i+1:]...)
			return
		}
	}
}

// ordered returns the items in meta.order order.
func (d *Document) ordered() []*models.Item {
	out := make([]*models.Item, 0, len(d.Meta.Order))
	for _, id := range d.Meta.Order {
		if it := d.Items[id]; it != nil {
			out = append(out, it)
		}
	}
	return out
}
