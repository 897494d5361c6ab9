package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
	&Observation{},
	&IntervalMetric{},
}

// DatabaseModelsSQLite is the SQLite schema. It matches DatabaseModels; the
// point columns are stored as WKB blobs.
var DatabaseModelsSQLite = []interface{}{
	&Run{},
	&Observation{},
	&IntervalMetric{},
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Run is one recording session
type Run struct {
	gorm.Model
	RunID      string         `json:"runId" gorm:"size:36;uniqueIndex"`
	Name       string         `json:"name" gorm:"size:200"`
	Source     string         `json:"source" gorm:"size:64"`
	StartTime  time.Time      `json:"startTime" gorm:"index:idx_run_start"`
	EndTime    *time.Time     `json:"endTime"`
	StepLength float64        `json:"stepLength" gorm:"default:1.0"`
	BinWidth   int            `json:"binWidth" gorm:"default:60"`
	Camera     datatypes.JSON `json:"camera"`

	Observations []Observation
	Metrics      []IntervalMetric
}

func (*Run) TableName() string {
	return "runs"
}

// Observation is one recorded vehicle sighting
type Observation struct {
	ID        uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID     uint       `json:"runId" gorm:"index:idx_observation_run_id"`
	Run       Run        `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Time      float64    `json:"time" gorm:"index:idx_observation_time"` // simulation seconds
	VehicleID string     `json:"vehicleId" gorm:"size:128;index:idx_observation_vehicle_id"`
	Position  geom.Point `json:"position"` // simulator network coordinates
	Speed     float64    `json:"speed"`    // m/s
	LaneID    string     `json:"laneId" gorm:"size:128"`
}

func (*Observation) TableName() string {
	return "observations"
}

// IntervalMetric is one aggregated time bin
type IntervalMetric struct {
	ID            uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID         uint    `json:"runId" gorm:"index:idx_interval_metric_run_id"`
	Run           Run     `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Interval      string  `json:"interval" gorm:"size:32"`
	StartTime     int     `json:"startTime"`
	EndTime       int     `json:"endTime"`
	VehicleCount  int     `json:"vehicleCount"`
	AvgTravelTime float64 `json:"avgTravelTimeSec"`
	AvgSpeed      float64 `json:"avgSpeed"`
}

func (*IntervalMetric) TableName() string {
	return "interval_metrics"
}
