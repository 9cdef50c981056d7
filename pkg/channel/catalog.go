package channel

import "fmt"

// Channel is one acquisition stream of an image. Index is the 0-based
// position in acquisition order and addresses the pixel planes.
type Channel struct {
	Name  string
	ID    string
	Index int
}

// DefaultID is the identifier given to a channel recorded without one.
func DefaultID(index int) string {
	return fmt.Sprintf("Channel:0:%d", index)
}

// Catalog maps channel ids and names to the ordered list of indices sharing
// them. Neither ids nor names are assumed unique.
type Catalog struct {
	channels []Channel
	byID     map[string][]int
	byName   map[string][]int
}

// NewCatalog indexes records in the order given. The position of a record is
// its index, whatever the Index field of the record says.
func NewCatalog(records []Channel) *Catalog {
	cat := &Catalog{
		channels: make([]Channel, len(records)),
		byID:     make(map[string][]int, len(records)),
		byName:   make(map[string][]int, len(records)),
	}
	for i, rec := range records {
		rec.Index = i
		if rec.ID == "" {
			rec.ID = DefaultID(i)
		}
		cat.channels[i] = rec
		insertOrAppend(cat.byID, rec.ID, i)
		if rec.Name != "" {
			insertOrAppend(cat.byName, rec.Name, i)
		}
	}

	return cat
}

func insertOrAppend(index map[string][]int, key string, value int) {
	list, ok := index[key]
	if !ok {
		index[key] = []int{value}

		return
	}
	index[key] = append(list, value)
}

// Len returns the number of channels.
func (c *Catalog) Len() int {
	return len(c.channels)
}

// Channel returns the channel at index i.
func (c *Catalog) Channel(i int) (Channel, bool) {
	if i < 0 || i >= len(c.channels) {
		return Channel{}, false
	}

	return c.channels[i], true
}

// Channels returns a copy of the indexed channels.
func (c *Catalog) Channels() []Channel {
	out := make([]Channel, len(c.channels))
	copy(out, c.channels)

	return out
}

// ByID returns the indices of the channels with the given id.
func (c *Catalog) ByID(id string) []int {
	return lookup(c.byID, id)
}

// ByName returns the indices of the channels with the given name.
func (c *Catalog) ByName(name string) []int {
	return lookup(c.byName, name)
}

func lookup(index map[string][]int, key string) []int {
	list, ok := index[key]
	if !ok {
		return nil
	}
	out := make([]int, len(list))
	copy(out, list)

	return out
}

// Names returns the channel names for indices. A channel without a name is
// reported by its id.
func (c *Catalog) Names(indices []int) []string {
	names := make([]string, 0, len(indices))
	for _, i := range indices {
		ch, ok := c.Channel(i)
		if !ok {
			continue
		}
		if ch.Name == "" {
			names = append(names, ch.ID)

			continue
		}
		names = append(names, ch.Name)
	}

	return names
}

// AllNames returns the name of every channel in acquisition order.
func (c *Catalog) AllNames() []string {
	names := make([]string, len(c.channels))
	for i, ch := range c.channels {
		names[i] = ch.Name
	}

	return names
}
