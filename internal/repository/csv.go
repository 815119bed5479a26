// internal/repository/csv.go
package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"organmatch/internal/models"
)

// Column aliases accepted for the historical datasets. The first name of each
// group is the canonical header.
var (
	donorIDColumns    = []string{"donerid", "donor_id", "donorid"}
	receiverIDColumns = []string{"reciverid", "receiver_id", "receiverid"}
	emailColumns      = []string{"gamil", "email"}
	organColumns      = []string{"organ", "organ_needed"}
)

type header map[string]int

func newHeader(record []string) header {
	h := make(header, len(record))
	for i, name := range record {
		h[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	return h
}

func (h header) index(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := h[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func (h header) require(names ...string) (int, error) {
	if i, ok := h.index(names...); ok {
		return i, nil
	}
	return 0, fmt.Errorf("missing column %q", names[0])
}

type rowReader struct {
	record []string
	line   int
}

func (r rowReader) str(i int) string {
	if i < 0 || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r rowReader) int(i int, field string) (int, error) {
	s := r.str(i)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("line %d: %s %q is not an integer", r.line, field, s)
		}
		v = int(f)
	}
	return v, nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid flag %q", s)
}

// ReadDonorsCSV parses the donor dataset. Required columns: donerid, age,
// location, bloodgroup, organ, organ_tissue_type.
func ReadDonorsCSV(r io.Reader) ([]models.Donor, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := newHeader(first)

	cols := map[string]int{}
	for name, aliases := range map[string][]string{
		"id":       donorIDColumns,
		"age":      {"age"},
		"location": {"location"},
		"blood":    {"bloodgroup", "blood_group"},
		"organ":    organColumns,
		"tissue":   {"organ_tissue_type", "tissue_type"},
	} {
		i, err := h.require(aliases...)
		if err != nil {
			return nil, err
		}
		cols[name] = i
	}
	optional := func(names ...string) int {
		if i, ok := h.index(names...); ok {
			return i
		}
		return -1
	}
	health := optional("organ_health_score", "health_score")
	transport := optional("hospital_transportation")
	hospital := optional("hospital_name")
	email := optional(emailColumns...)
	phone := optional("phone", "contact")

	var donors []models.Donor
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := rowReader{record: record, line: line}

		age, err := row.int(cols["age"], "age")
		if err != nil {
			return nil, err
		}
		score, err := row.int(health, "organ_health_score")
		if err != nil {
			return nil, err
		}
		flag, err := parseFlag(row.str(transport))
		if err != nil {
			return nil, fmt.Errorf("line %d: hospital_transportation: %w", line, err)
		}

		donors = append(donors, models.Donor{
			ID:                 row.str(cols["id"]),
			Age:                age,
			Location:           row.str(cols["location"]),
			BloodGroup:         models.BloodGroup(strings.ToUpper(row.str(cols["blood"]))),
			Organ:              row.str(cols["organ"]),
			TissueType:         row.str(cols["tissue"]),
			HealthScore:        score,
			TransportAvailable: flag,
			HospitalName:       row.str(hospital),
			ContactEmail:       row.str(email),
			ContactPhone:       row.str(phone),
		})
	}
	return donors, nil
}

// ReadReceiversCSV parses the recipient dataset. Required columns: reciverid,
// age, location, bloodgroup, organ, organ_tissue_type, urgency.
func ReadReceiversCSV(r io.Reader) ([]models.Receiver, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := newHeader(first)

	cols := map[string]int{}
	for name, aliases := range map[string][]string{
		"id":       receiverIDColumns,
		"age":      {"age"},
		"location": {"location"},
		"blood":    {"bloodgroup", "blood_group"},
		"organ":    organColumns,
		"tissue":   {"organ_tissue_type", "tissue_type"},
		"urgency":  {"urgency"},
	} {
		i, err := h.require(aliases...)
		if err != nil {
			return nil, err
		}
		cols[name] = i
	}

	var receivers []models.Receiver
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := rowReader{record: record, line: line}

		age, err := row.int(cols["age"], "age")
		if err != nil {
			return nil, err
		}
		urgency, err := row.int(cols["urgency"], "urgency")
		if err != nil {
			return nil, err
		}

		receivers = append(receivers, models.Receiver{
			ID:          row.str(cols["id"]),
			Age:         age,
			Location:    row.str(cols["location"]),
			BloodGroup:  models.BloodGroup(strings.ToUpper(row.str(cols["blood"]))),
			OrganNeeded: row.str(cols["organ"]),
			TissueType:  row.str(cols["tissue"]),
			Urgency:     urgency,
		})
	}
	return receivers, nil
}

// CSVStore serves donors and receivers held in memory from CSV files.
type CSVStore struct {
	donors    []models.Donor
	receivers []models.Receiver
}

func NewCSVStore(donors []models.Donor, receivers []models.Receiver) *CSVStore {
	return &CSVStore{donors: donors, receivers: receivers}
}

// OpenCSVStore reads the donor file and, when receiversPath is set, the
// receiver file.
func OpenCSVStore(donorsPath, receiversPath string) (*CSVStore, error) {
	donors, err := readFile(donorsPath, ReadDonorsCSV)
	if err != nil {
		return nil, err
	}
	var receivers []models.Receiver
	if receiversPath != "" {
		receivers, err = readFile(receiversPath, ReadReceiversCSV)
		if err != nil {
			return nil, err
		}
	}
	return NewCSVStore(donors, receivers), nil
}

func readFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	out, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func (s *CSVStore) DonorsByOrgan(_ context.Context, organ string) ([]models.Donor, error) {
	var out []models.Donor
	for _, d := range s.donors {
		if d.Organ == organ {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *CSVStore) AllDonors(context.Context) ([]models.Donor, error) {
	return s.donors, nil
}

func (s *CSVStore) AllReceivers(context.Context) ([]models.Receiver, error) {
	return s.receivers, nil
}
