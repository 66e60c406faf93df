package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"facturard/internal/core/entity"
	"facturard/internal/core/id"
)

type sampleRow struct {
	entity.BaseEntity
	TaxID   string `db:"tax_id"`
	Name    string `db:"name"`
	Ignored string `db:"-"`
	NoTag   string
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[sampleRow]()

	assert.Equal(t, []string{
		"id", "owner_id", "version", "created_at", "updated_at", "tax_id", "name",
	}, cols)
}

func TestStructToMap(t *testing.T) {
	owner := id.New()
	row := sampleRow{
		BaseEntity: entity.NewBaseEntity(owner),
		TaxID:      "131888444",
		Name:       "Colmado La Esquina",
		Ignored:    "x",
	}

	m := StructToMap(&row)

	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, owner, m["owner_id"])
	assert.Equal(t, 1, m["version"])
	assert.Equal(t, "131888444", m["tax_id"])
	assert.NotContains(t, m, "Ignored")
	assert.NotContains(t, m, "NoTag")
	assert.Len(t, m, 7)
}

func TestStructToMap_Skip(t *testing.T) {
	m := StructToMap(sampleRow{Name: "n"}, "id", "version")

	assert.NotContains(t, m, "id")
	assert.NotContains(t, m, "version")
	assert.Equal(t, "n", m["name"])
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}
