package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Run", &Run{}, "runs"},
		{"Observation", &Observation{}, "observations"},
		{"IntervalMetric", &IntervalMetric{}, "interval_metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels(t *testing.T) {
	assert.Len(t, DatabaseModels, 3)
	assert.Len(t, DatabaseModelsSQLite, len(DatabaseModels))
}
