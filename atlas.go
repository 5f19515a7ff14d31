package quadbatch

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// AtlasEntry describes one named sprite within an atlas page.
type AtlasEntry struct {
	Page      int  // index into the atlas pages
	X, Y      int  // top-left corner of the stored pixels within the page
	Width     int  // stored width (may differ from OriginalW if trimmed or rotated)
	Height    int  // stored height
	OriginalW int  // untrimmed sprite width
	OriginalH int  // untrimmed sprite height
	OffsetX   int  // horizontal trim offset
	OffsetY   int  // vertical trim offset
	Rotated   bool // stored 90 degrees clockwise in the page
}

// Atlas maps sprite names to regions over one or more page textures. It holds
// one reference on every page until Close.
type Atlas struct {
	pages   []*Region
	entries map[string]AtlasEntry
	closed  bool
}

// NewAtlas builds an atlas from an already-parsed table. Every entry must name
// an existing page.
func NewAtlas(pages []*TextureBase, table map[string]AtlasEntry) (*Atlas, error) {
	if len(pages) == 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "quadbatch: atlas has no pages")
	}
	for name, e := range table {
		if e.Page < 0 || e.Page >= len(pages) {
			return nil, errors.Wrapf(ErrInvalidBounds, "atlas entry %q: page %d of %d", name, e.Page, len(pages))
		}
	}
	a := &Atlas{
		pages:   make([]*Region, len(pages)),
		entries: make(map[string]AtlasEntry, len(table)),
	}
	for i, p := range pages {
		a.pages[i] = p.Region()
	}
	for name, e := range table {
		a.entries[name] = e
	}
	return a, nil
}

// ParseAtlas parses TexturePacker JSON and associates the given page
// textures. Both the hash format (single "frames" object) and the array format
// ("textures" array with per-page frame lists) are accepted.
func ParseAtlas(jsonData []byte, pages []*TextureBase) (*Atlas, error) {
	var probe struct {
		Frames   json.RawMessage `json:"frames"`
		Textures json.RawMessage `json:"textures"`
	}
	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, errors.Wrap(err, "quadbatch: parse atlas JSON")
	}

	table := make(map[string]AtlasEntry)
	switch {
	case probe.Textures != nil:
		var textures []jsonTexturePage
		if err := json.Unmarshal(probe.Textures, &textures); err != nil {
			return nil, errors.Wrap(err, "quadbatch: parse atlas textures array")
		}
		for i, tex := range textures {
			for name, f := range tex.Frames {
				table[name] = f.entry(i)
			}
		}
	case probe.Frames != nil:
		var frames map[string]jsonFrame
		if err := json.Unmarshal(probe.Frames, &frames); err != nil {
			return nil, errors.Wrap(err, "quadbatch: parse atlas frames")
		}
		for name, f := range frames {
			table[name] = f.entry(0)
		}
	default:
		return nil, errors.New(`quadbatch: atlas JSON has neither "frames" nor "textures" key`)
	}
	return NewAtlas(pages, table)
}

// Region returns a new region for the named sprite. The caller owns it and
// must Close it. An unknown name logs a warning and yields a 1x1 region at the
// origin of page 0.
func (a *Atlas) Region(name string) (*Region, error) {
	if a.closed {
		return nil, errors.Wrap(ErrRegionClosed, "quadbatch: atlas closed")
	}
	e, ok := a.entries[name]
	if !ok {
		Logger().Warn("quadbatch: atlas region not found, using placeholder", "name", name)
		return a.pages[0].Slice(0, 0, 1, 1), nil
	}
	return a.pages[e.Page].Slice(e.X, e.Y, e.Width, e.Height), nil
}

// Entry returns the table entry for name.
func (a *Atlas) Entry(name string) (AtlasEntry, bool) {
	e, ok := a.entries[name]
	return e, ok
}

// Len returns the number of named sprites.
func (a *Atlas) Len() int { return len(a.entries) }

// Pages returns the number of atlas pages.
func (a *Atlas) Pages() int { return len(a.pages) }

// Close releases the atlas' references on its pages. Regions already handed
// out stay valid until they are closed themselves.
func (a *Atlas) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	for _, p := range a.pages {
		_ = p.Close()
	}
	return nil
}

// --- JSON structure types ---

type jsonRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type jsonSize struct {
	W int `json:"w"`
	H int `json:"h"`
}

type jsonFrame struct {
	Frame            jsonRect `json:"frame"`
	Rotated          bool     `json:"rotated"`
	Trimmed          bool     `json:"trimmed"`
	SpriteSourceSize jsonRect `json:"spriteSourceSize"`
	SourceSize       jsonSize `json:"sourceSize"`
}

type jsonTexturePage struct {
	Image  string               `json:"image"`
	Frames map[string]jsonFrame `json:"frames"`
}

func (f jsonFrame) entry(page int) AtlasEntry {
	return AtlasEntry{
		Page:      page,
		X:         f.Frame.X,
		Y:         f.Frame.Y,
		Width:     f.Frame.W,
		Height:    f.Frame.H,
		OriginalW: f.SourceSize.W,
		OriginalH: f.SourceSize.H,
		OffsetX:   f.SpriteSourceSize.X,
		OffsetY:   f.SpriteSourceSize.Y,
		Rotated:   f.Rotated,
	}
}
