package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/yberrad/newsgraph/internal/models"
)

type joinKey struct {
	id   string
	date string
}

// Merge outer-joins the three NER tables on (id, date) and writes the result
// to NERs.csv in the same directory. A key present in any input produces a
// row; columns missing for that key stay empty.
func Merge(dir string) error {
	orgs, orgOrder, err := readNERTable(filepath.Join(dir, OrganizationsFile))
	if err != nil {
		return err
	}
	locs, locOrder, err := readNERTable(filepath.Join(dir, LocationsFile))
	if err != nil {
		return err
	}
	pers, perOrder, err := readNERTable(filepath.Join(dir, PersonsFile))
	if err != nil {
		return err
	}

	// Union of keys, ordered by first appearance across the three inputs.
	seen := make(map[joinKey]struct{})
	var keys []joinKey
	for _, order := range [][]joinKey{orgOrder, locOrder, perOrder} {
		for _, key := range order {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	out := filepath.Join(dir, MergedFile)
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "id", "NERs_org", "NERs_loca", "NERs_per"}); err != nil {
		return fmt.Errorf("write merged header: %w", err)
	}

	for _, key := range keys {
		row := []string{key.date, key.id, orgs[key], locs[key], pers[key]}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write merged row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", out, err)
	}
	return nil
}

// readNERTable loads a [date, id, entities] CSV into cells keyed by (id, date),
// also returning the keys in file order.
func readNERTable(path string) (map[joinKey]string, []joinKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	// Header row.
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return map[joinKey]string{}, nil, nil
		}
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	cells := make(map[joinKey]string)
	var order []joinKey
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(record) != 3 {
			return nil, nil, fmt.Errorf("malformed row in %s: %d columns", path, len(record))
		}

		key := joinKey{id: record[1], date: record[0]}
		if _, ok := cells[key]; !ok {
			order = append(order, key)
		}
		cells[key] = record[2]
	}

	return cells, order, nil
}

// MergedRow is one parsed row of NERs.csv.
type MergedRow struct {
	Date          time.Time
	ID            string
	Organizations []string
	Locations     []models.LocationMention
	Persons       []string
}

// ReadMerged loads NERs.csv. Empty cells decode to nil slices.
func ReadMerged(path string) ([]MergedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	var rows []MergedRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(record) != 5 {
			return nil, fmt.Errorf("malformed row in %s: %d columns", path, len(record))
		}

		date, err := time.Parse(time.RFC3339, record[0])
		if err != nil {
			return nil, fmt.Errorf("parse date %q in %s: %w", record[0], path, err)
		}

		row := MergedRow{Date: date, ID: record[1]}
		if err := decodeCell(record[2], &row.Organizations); err != nil {
			return nil, fmt.Errorf("parse organizations cell for %s: %w", row.ID, err)
		}
		if err := decodeCell(record[3], &row.Locations); err != nil {
			return nil, fmt.Errorf("parse locations cell for %s: %w", row.ID, err)
		}
		if err := decodeCell(record[4], &row.Persons); err != nil {
			return nil, fmt.Errorf("parse persons cell for %s: %w", row.ID, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// ReadLinks loads links.csv deduplicated by organization name, first
// occurrence winning.
func ReadLinks(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	links := make(map[string]string)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(record) != 2 {
			return nil, fmt.Errorf("malformed row in %s: %d columns", path, len(record))
		}

		if _, ok := links[record[0]]; !ok {
			links[record[0]] = record[1]
		}
	}

	return links, nil
}

func decodeCell(cell string, dst any) error {
	if cell == "" {
		return nil
	}
	return json.Unmarshal([]byte(cell), dst)
}
