package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ppiankov/claimscope/internal/model"
	"go.uber.org/zap"
)

// ErrMissingColumn is returned when a required CSV column is absent
var ErrMissingColumn = errors.New("missing required column")

// TitleRow is one line of the titles register
type TitleRow struct {
	ClaimID      string
	ClaimantID   string
	LocalityID   string
	Kind         model.ClaimKind
	AreaHectares float64
	Status       string
	Applicant    model.Applicant
	Admin        model.Admin
}

// Key returns the claim identity of the row
func (r TitleRow) Key() model.Key {
	return model.Key{ClaimantID: r.ClaimantID, ClaimID: r.ClaimID}
}

// columns maps header names onto TitleRow setters
var columns = map[string]func(*TitleRow, string){
	"title_id":         func(r *TitleRow, v string) { r.ClaimID = v },
	"beneficiary_id":   func(r *TitleRow, v string) { r.ClaimantID = v },
	"village_id":       func(r *TitleRow, v string) { r.LocalityID = v },
	"right_type":       func(r *TitleRow, v string) { r.Kind = model.ParseClaimKind(v) },
	"status":           func(r *TitleRow, v string) { r.Status = v },
	"first_name":       func(r *TitleRow, v string) { r.Applicant.FirstName = v },
	"last_name":        func(r *TitleRow, v string) { r.Applicant.LastName = v },
	"gender":           func(r *TitleRow, v string) { r.Applicant.Gender = v },
	"tribal_community": func(r *TitleRow, v string) { r.Applicant.TribalCommunity = v },
	"aadhaar_number":   func(r *TitleRow, v string) { r.Applicant.Aadhaar = v },
	"village_name":     func(r *TitleRow, v string) { r.Admin.Village = v },
	"gp_id":            func(r *TitleRow, v string) { r.Admin.GPID = v },
	"gp_name":          func(r *TitleRow, v string) { r.Admin.GP = v },
	"block_id":         func(r *TitleRow, v string) { r.Admin.BlockID = v },
	"block_name":       func(r *TitleRow, v string) { r.Admin.Block = v },
	"district":         func(r *TitleRow, v string) { r.Admin.District = v },
	"state":            func(r *TitleRow, v string) { r.Admin.State = v },
}

// numeric columns are parsed separately so a bad value can be reported
var numericColumns = map[string]func(*TitleRow, float64){
	"area_hectares": func(r *TitleRow, v float64) { r.AreaHectares = v },
	"annual_income": func(r *TitleRow, v float64) { r.Applicant.AnnualIncome = v },
}

// LoadTitles reads the titles register CSV.
// Unknown columns are ignored. A numeric cell that does not parse leaves the field at zero.
func LoadTitles(r io.Reader, logger *zap.Logger) ([]TitleRow, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty titles file", ErrMissingColumn)
		}
		return nil, fmt.Errorf("failed to read titles header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"title_id", "beneficiary_id"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var rows []TitleRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read titles line %d: %w", line, err)
		}

		var row TitleRow
		for name, i := range index {
			if i >= len(record) {
				continue
			}
			value := strings.TrimSpace(record[i])
			if set, ok := columns[name]; ok {
				set(&row, value)
				continue
			}
			if set, ok := numericColumns[name]; ok && value != "" {
				f, err := strconv.ParseFloat(value, 64)
				if err != nil {
					logger.Warn("ignoring non-numeric cell",
						zap.Int("line", line),
						zap.String("column", name),
						zap.String("value", value))
					continue
				}
				set(&row, f)
			}
		}

		if row.ClaimID == "" || row.ClaimantID == "" {
			logger.Warn("skipping title without identifiers", zap.Int("line", line))
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}
