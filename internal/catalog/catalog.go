// Package catalog provides the immutable instrument catalog: the mapping
// from human-readable market names to CFTC contract codes. The database is
// compiled into the binary and loaded once at process start; every accessor
// is read-only.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cotlens/cotlens/pkg/models"
)

//go:embed instruments.json
var instrumentsJSON []byte

// Catalog is the loaded instrument database.
type Catalog struct {
	instruments []models.Instrument
	byCode      map[string]*models.Instrument
	byName      map[string]*models.Instrument
}

// Load parses the embedded instrument database.
func Load() (*Catalog, error) {
	return parse(instrumentsJSON)
}

func parse(data []byte) (*Catalog, error) {
	var raw []models.Instrument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("instrument catalog: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("instrument catalog: empty database")
	}

	for i := range raw {
		if raw[i].ContractCode == "" || raw[i].Name == "" {
			return nil, fmt.Errorf("instrument catalog: entry %d missing name or contract code", i)
		}
		raw[i].AssetClass = AssetClassFor(raw[i].CommodityGroup)
	}

	// Sort before taking pointers into the slice; sorting afterwards would
	// leave the lookup maps addressing the wrong elements.
	sort.Slice(raw, func(i, j int) bool {
		return raw[i].Name < raw[j].Name
	})

	c := &Catalog{
		instruments: raw,
		byCode:      make(map[string]*models.Instrument, len(raw)),
		byName:      make(map[string]*models.Instrument, len(raw)),
	}
	for i := range c.instruments {
		inst := &c.instruments[i]
		c.byCode[inst.ContractCode] = inst
		c.byName[strings.ToLower(inst.Name)] = inst
	}
	return c, nil
}

// All returns every instrument, sorted by display name.
func (c *Catalog) All() []models.Instrument {
	out := make([]models.Instrument, len(c.instruments))
	copy(out, c.instruments)
	return out
}

// ByCode looks up an instrument by CFTC contract code.
func (c *Catalog) ByCode(code string) (models.Instrument, bool) {
	inst, ok := c.byCode[code]
	if !ok {
		return models.Instrument{}, false
	}
	return *inst, true
}

// ByName looks up an instrument by display name (case-insensitive).
func (c *Catalog) ByName(name string) (models.Instrument, bool) {
	inst, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return models.Instrument{}, false
	}
	return *inst, true
}

// Search returns instruments whose name, exchange, or code contains the
// query (case-insensitive substring match), sorted by name.
func (c *Catalog) Search(q string) []models.Instrument {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	var out []models.Instrument
	for _, inst := range c.instruments {
		if strings.Contains(strings.ToLower(inst.Name), q) ||
			strings.Contains(strings.ToLower(inst.Exchange), q) ||
			strings.Contains(strings.ToLower(inst.ContractCode), q) {
			out = append(out, inst)
		}
	}
	return out
}

// ByAssetClass returns all instruments in the given asset class.
func (c *Catalog) ByAssetClass(class models.AssetClass) []models.Instrument {
	var out []models.Instrument
	for _, inst := range c.instruments {
		if inst.AssetClass == class {
			out = append(out, inst)
		}
	}
	return out
}

// Len returns the number of instruments.
func (c *Catalog) Len() int { return len(c.instruments) }

// AssetClassFor maps a CFTC commodity group to a broad asset class.
func AssetClassFor(group string) models.AssetClass {
	switch strings.ToUpper(group) {
	case "PETROLEUM AND PRODUCTS", "ELECTRICITY", "NATURAL GAS":
		return models.AssetEnergy
	case "PRECIOUS METALS", "BASE METALS":
		return models.AssetMetals
	case "GRAINS AND OILSEEDS", "LIVESTOCK", "DAIRY", "SOFTS", "WOOD PRODUCTS":
		return models.AssetAgriculture
	default:
		return models.AssetOther
	}
}
