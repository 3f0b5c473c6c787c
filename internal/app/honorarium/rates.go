// Package honorarium holds the rate table used to compute panel receivables.
package honorarium

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yigit/thesisflow/internal/app/models"
)

// Table maps defense type and committee role to an honorarium amount.
type Table struct {
	rates map[models.DefenseType]map[models.CommitteeRole]float64
}

type fileFormat struct {
	Rates map[string]map[string]float64 `yaml:"rates"`
}

// NewTable builds a table from nested maps.
func NewTable(rates map[models.DefenseType]map[models.CommitteeRole]float64) *Table {
	t := &Table{rates: map[models.DefenseType]map[models.CommitteeRole]float64{}}
	for dt, byRole := range rates {
		t.rates[dt] = map[models.CommitteeRole]float64{}
		for role, amount := range byRole {
			t.rates[dt][role] = amount
		}
	}
	return t
}

// Load reads a YAML rate file. A missing file yields an empty table, which
// leaves every receivable unknown.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTable(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rate file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML rate document.
func Parse(data []byte) (*Table, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rate file: %w", err)
	}

	rates := map[models.DefenseType]map[models.CommitteeRole]float64{}
	for dt, byRole := range f.Rates {
		defenseType := models.DefenseType(dt)
		if !defenseType.Valid() {
			return nil, fmt.Errorf("unknown defense type %q in rate file", dt)
		}
		rates[defenseType] = map[models.CommitteeRole]float64{}
		for role, amount := range byRole {
			r := models.CommitteeRole(role)
			switch r {
			case models.RoleAdviserSeat, models.RoleChairpersonSeat, models.RolePanelistSeat:
			default:
				return nil, fmt.Errorf("unknown committee role %q in rate file", role)
			}
			if amount < 0 {
				return nil, fmt.Errorf("negative rate for %s/%s", dt, role)
			}
			rates[defenseType][r] = amount
		}
	}
	return NewTable(rates), nil
}

// Lookup returns the rate for role on a defense of type dt.
func (t *Table) Lookup(role models.CommitteeRole, dt models.DefenseType) (float64, bool) {
	if t == nil {
		return 0, false
	}
	amount, ok := t.rates[dt][role]
	return amount, ok
}
