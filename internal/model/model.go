package model

import (
	"encoding/json"
	"time"

	"github.com/ascentops/autopilot/pkg/core"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Flight{},
	&Sample{},
	&Event{},
}

// Flight is one recorded ascent.
type Flight struct {
	gorm.Model
	FlightID    string         `json:"flightId" gorm:"size:36;uniqueIndex"`
	VesselName  string         `json:"vesselName" gorm:"size:127"`
	StartTime   time.Time      `json:"startTime" gorm:"index:idx_flight_start_time"`
	EndTime     *time.Time     `json:"endTime"`
	Version     string         `json:"version" gorm:"size:32"`
	Params      datatypes.JSON `json:"params"`
	SampleCount int            `json:"sampleCount"`
	Duration    float64        `json:"duration"`
}

func (*Flight) TableName() string {
	return "flights"
}

// Sample is one flight log row.
type Sample struct {
	ID       uint    `json:"id" gorm:"primarykey;autoIncrement"`
	FlightID uint    `json:"flightId" gorm:"index:idx_sample_flight_id"`
	Flight   Flight  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	Time     float64 `json:"time" gorm:"index:idx_sample_time"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Altitude float64 `json:"altitude"`
	Speed    float64 `json:"speed"`
}

func (*Sample) TableName() string {
	return "samples"
}

// Event is a phase change, stage separation or maneuver milestone.
type Event struct {
	ID       uint      `json:"id" gorm:"primarykey;autoIncrement"`
	FlightID uint      `json:"flightId" gorm:"index:idx_event_flight_id"`
	Flight   Flight    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	Time     time.Time `json:"time"`
	MET      float64   `json:"met"`
	Kind     string    `json:"kind" gorm:"size:32;index:idx_event_kind"`
	From     string    `json:"from" gorm:"size:64"`
	To       string    `json:"to" gorm:"size:64"`
	Message  string    `json:"message"`
}

func (*Event) TableName() string {
	return "events"
}

// paramsToJSON converts flight parameters to datatypes.JSON for DB storage.
func paramsToJSON(params map[string]float64) datatypes.JSON {
	if len(params) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(params)
	return datatypes.JSON(data)
}

// FromFlight converts a core flight to its row.
func FromFlight(f core.Flight) Flight {
	return Flight{
		Model:      gorm.Model{ID: f.ID},
		FlightID:   f.FlightID,
		VesselName: f.VesselName,
		StartTime:  f.StartTime,
		Version:    f.Version,
		Params:     paramsToJSON(f.Params),
	}
}

// FromSamples converts flight log rows, tagging each with flightID.
func FromSamples(flightID uint, samples []core.FlightSample) []Sample {
	out := make([]Sample, len(samples))
	for i, s := range samples {
		out[i] = Sample{
			FlightID: flightID,
			Time:     s.Time,
			X:        s.X,
			Y:        s.Y,
			Altitude: s.Altitude,
			Speed:    s.Speed,
		}
	}
	return out
}

// FromEvent converts a flight event.
func FromEvent(flightID uint, e core.FlightEvent) Event {
	return Event{
		FlightID: flightID,
		Time:     e.Time,
		MET:      e.MET,
		Kind:     e.Kind,
		From:     e.From,
		To:       e.To,
		Message:  e.Message,
	}
}

// ToSample converts a row back to a flight log sample.
func (s Sample) ToSample() core.FlightSample {
	return core.FlightSample{
		Time:     s.Time,
		X:        s.X,
		Y:        s.Y,
		Altitude: s.Altitude,
		Speed:    s.Speed,
	}
}
