package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sweeper/internal/model"
)

func TestGroupKeyRendering(t *testing.T) {
	t.Parallel()
	year := model.GroupKey{Year: "2024"}
	assert.Equal(t, "2024", year.String())
	assert.Equal(t, model.GroupTypeYear, year.Type())

	month := model.GroupKey{Year: "2024", Month: "Jan"}
	assert.Equal(t, "2024-Jan", month.String())
	assert.Equal(t, model.GroupTypeMonth, month.Type())
	assert.Equal(t, year, month.YearKey())
}

func TestCoverPriorityOrder(t *testing.T) {
	t.Parallel()
	assert.Less(t, model.CoverPriority(model.StatusNormal), model.CoverPriority(model.StatusKeep))
	assert.Less(t, model.CoverPriority(model.StatusKeep), model.CoverPriority(model.StatusTrashed))
}

func TestStatusString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "NORMAL", model.StatusNormal.String())
	assert.Equal(t, "KEEP", model.StatusKeep.String())
	assert.Equal(t, "TRASHED", model.StatusTrashed.String())
	assert.Equal(t, "Status(9)", model.Status(9).String())
}
