package reconcile

import (
	"strings"

	pkgerrors "github.com/medimandi/medimandi-backend/pkg/errors"

	"github.com/medimandi/medimandi-backend/internal/catalog"
)

// Field identifies a target column in an inventory upload.
type Field string

const (
	FieldName         Field = "name"
	FieldManufacturer Field = "manufacturer"
	FieldPrice        Field = "price"
	FieldBatch        Field = "batch"
	FieldExpiry       Field = "expiry"
)

// Headers are matched exact first, then normalized, then through this
// synonym list. Keys are normalized forms.
var headerSynonyms = map[string]Field{
	"product":       FieldName,
	"product name":  FieldName,
	"medicine":      FieldName,
	"medicine name": FieldName,
	"item":          FieldName,
	"item name":     FieldName,
	"description":   FieldName,

	"company":      FieldManufacturer,
	"company name": FieldManufacturer,
	"mfg":          FieldManufacturer,
	"mfr":          FieldManufacturer,
	"marketer":     FieldManufacturer,
	"brand":        FieldManufacturer,

	"mrp":        FieldPrice,
	"rate":       FieldPrice,
	"unit price": FieldPrice,
	"price":      FieldPrice,
	"cost":       FieldPrice,

	"batch":     FieldBatch,
	"batch no":  FieldBatch,
	"batch num": FieldBatch,
	"lot":       FieldBatch,
	"lot no":    FieldBatch,

	"expiry":      FieldExpiry,
	"exp":         FieldExpiry,
	"exp date":    FieldExpiry,
	"expiry date": FieldExpiry,
	"expdt":       FieldExpiry,
}

// ColumnMap records which header index feeds each target field. Absent
// fields map to -1.
type ColumnMap struct {
	indexes map[Field]int
}

// Index returns the column index for the field or -1 when unmapped.
func (m ColumnMap) Index(field Field) int {
	if idx, ok := m.indexes[field]; ok {
		return idx
	}
	return -1
}

// Cell pulls the trimmed value for a field out of one row, or "".
func (m ColumnMap) Cell(row []string, field Field) string {
	idx := m.Index(field)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// MapHeader resolves a free-form header row. Each header cell is tried
// exact, then normalized, then against the synonym list; the first header
// claiming a field wins. A header without a resolvable name column is
// rejected outright.
func MapHeader(header []string) (ColumnMap, error) {
	m := ColumnMap{indexes: map[Field]int{}}
	for i, raw := range header {
		field, ok := resolveHeader(raw)
		if !ok {
			continue
		}
		if _, taken := m.indexes[field]; taken {
			continue
		}
		m.indexes[field] = i
	}
	if _, ok := m.indexes[FieldName]; !ok {
		return ColumnMap{}, pkgerrors.New(pkgerrors.CodeValidation, "upload header has no product name column")
	}
	return m, nil
}

func resolveHeader(raw string) (Field, bool) {
	exact := strings.TrimSpace(strings.ToLower(raw))
	switch exact {
	case "name", "manufacturer", "price", "batch", "expiry":
		return Field(exact), true
	}
	normalized := catalog.Normalize(raw)
	switch normalized {
	case "name":
		return FieldName, true
	case "manufacturer":
		return FieldManufacturer, true
	case "price":
		return FieldPrice, true
	case "batch":
		return FieldBatch, true
	case "expiry":
		return FieldExpiry, true
	}
	if field, ok := headerSynonyms[normalized]; ok {
		return field, true
	}
	return "", false
}
