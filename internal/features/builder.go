// Package features derives the fixed numeric feature schema used by the
// delivery-time predictor from order records.
//
// Build is pure: it reads the lookup tables it is given and performs no I/O.
package features

import (
	"math"
	"strconv"
	"strings"
	"time"

	"fleet-analytics-service/internal/domain"
)

// Defaults applied when a source value is missing or unparseable.
const (
	DefaultHour           = 12
	DefaultDayOfWeek      = 2 // Wednesday, 0=Monday
	DefaultPrepMinutes    = 15
	DefaultAverageMinutes = 147
	DefaultMonth          = 6
	DefaultQuarter        = 2
)

// Feature names, in the column order the scaler and model are fit to.
const (
	OrderHour           = "order_hour"
	DayOfWeek           = "day_of_week"
	IsMorningRush       = "is_morning_rush"
	IsLunchRush         = "is_lunch_rush"
	IsDinnerRush        = "is_dinner_rush"
	IsLateNight         = "is_late_night"
	IsWeekend           = "is_weekend"
	HourSquared         = "hour_squared"
	PrepTime            = "prep_time"
	StoreAvgTime        = "store_avg_time"
	StoreAvgPrep        = "store_avg_prep"
	VehicleAvgTime      = "vehicle_avg_time"
	PrepHourInteraction = "prep_hour_interaction"
	StoreWeekendFactor  = "store_weekend_factor"
	VehicleRushFactor   = "vehicle_rush_factor"
	WeekendDinner       = "weekend_dinner"
	DaysSinceStart      = "days_since_start"
	Month               = "month"
	Quarter             = "quarter"
	RushIntensity       = "rush_intensity"
)

var names = []string{
	OrderHour,
	DayOfWeek,
	IsMorningRush,
	IsLunchRush,
	IsDinnerRush,
	IsLateNight,
	IsWeekend,
	HourSquared,
	PrepTime,
	StoreAvgTime,
	StoreAvgPrep,
	VehicleAvgTime,
	PrepHourInteraction,
	StoreWeekendFactor,
	VehicleRushFactor,
	WeekendDinner,
	DaysSinceStart,
	Month,
	Quarter,
	RushIntensity,
}

// Names returns a copy of the ordered feature schema.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Lookups are the read-only tables consulted while building features.
type Lookups struct {
	Stores   domain.StoreAverages
	Vehicles domain.VehicleAverages
	// Start of the training data set. When nil, the batch minimum is used.
	DatasetStart *time.Time
}

// Table holds one feature vector per input record, in input order.
type Table struct {
	Names []string
	Rows  [][]float64
}

func (t Table) Len() int { return len(t.Rows) }

// Column returns the values of one feature, or nil for an unknown name.
func (t Table) Column(name string) []float64 {
	idx := -1
	for i, n := range t.Names {
		if n == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// Vector returns row i as a name->value mapping.
func (t Table) Vector(i int) map[string]float64 {
	out := make(map[string]float64, len(t.Names))
	for j, n := range t.Names {
		out[n] = t.Rows[i][j]
	}
	return out
}

// Rush windows are closed intervals on the order hour; late night wraps midnight.
func MorningRush(hour float64) bool { return hour >= 7 && hour <= 9 }
func LunchRush(hour float64) bool   { return hour >= 11 && hour <= 14 }
func DinnerRush(hour float64) bool  { return hour >= 17 && hour <= 20 }
func LateNight(hour float64) bool   { return hour >= 22 || hour <= 5 }

// Intensity weights of the rush windows.
const (
	morningWeight   = 1.2
	lunchWeight     = 1.5
	dinnerWeight    = 1.8
	lateNightWeight = 0.8
)

// Build derives the feature table for records. Every cell is finite.
func Build(records []domain.OrderRecord, lk Lookups) Table {
	t := Table{Names: Names(), Rows: make([][]float64, 0, len(records))}
	if len(records) == 0 {
		return t
	}

	start, hasStart := datasetStart(records, lk)

	for _, r := range records {
		hour := orderHour(r)
		dow := dayOfWeek(r)

		morning := indicator(MorningRush(hour))
		lunch := indicator(LunchRush(hour))
		dinner := indicator(DinnerRush(hour))
		late := indicator(LateNight(hour))
		weekend := indicator(dow >= 5)

		prep := valueOr(r.PrepMinutes, DefaultPrepMinutes)
		storeAvg, storePrep := storeAverages(r, lk.Stores)
		vehicleAvg := vehicleAverage(r, lk.Vehicles)

		days, month, quarter := 0.0, float64(DefaultMonth), float64(DefaultQuarter)
		if d, ok := r.Date(); ok {
			month = float64(d.Month())
			quarter = float64((int(d.Month())-1)/3 + 1)
			if hasStart {
				days = math.Floor(d.Sub(start).Hours() / 24)
			}
		}

		row := []float64{
			hour,
			dow,
			morning,
			lunch,
			dinner,
			late,
			weekend,
			hour * hour,
			prep,
			storeAvg,
			storePrep,
			vehicleAvg,
			prep * hour / 100,
			storeAvg * weekend,
			vehicleAvg * (morning + dinner),
			weekend * dinner,
			days,
			month,
			quarter,
			morning*morningWeight + lunch*lunchWeight + dinner*dinnerWeight + late*lateNightWeight,
		}

		for i, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[i] = 0
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t
}

// Explicit hour, else the leading HH of the order time, else noon.
func orderHour(r domain.OrderRecord) float64 {
	if v, ok := finite(r.OrderHour); ok {
		return v
	}
	if h, ok := ParseHour(r.OrderTime); ok {
		return float64(h)
	}
	return DefaultHour
}

// ParseHour reads the leading HH token of a time-of-day string.
func ParseHour(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	head, _, _ := strings.Cut(s, ":")
	h, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

// ParseMinutes converts "HH:MM[:SS]" to minutes after midnight.
func ParseMinutes(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func dayOfWeek(r domain.OrderRecord) float64 {
	if v, ok := finite(r.DayOfWeek); ok {
		return v
	}
	if d, ok := r.Date(); ok {
		return Weekday(d)
	}
	return DefaultDayOfWeek
}

// Weekday numbers days from Monday=0 to Sunday=6.
func Weekday(d time.Time) float64 {
	return float64((int(d.Weekday()) + 6) % 7)
}

func storeAverages(r domain.OrderRecord, stores domain.StoreAverages) (avg, prep float64) {
	avg, prep = DefaultAverageMinutes, DefaultPrepMinutes

	s, found := stores[r.StoreID]
	if found {
		avg, prep = s.AvgMinutes, s.AvgPrepMinutes
	}
	if v, ok := finite(r.StoreAvgMinutes); ok {
		avg = v
	}
	if v, ok := finite(r.StoreAvgPrepMinutes); ok {
		prep = v
	}
	return avg, prep
}

func vehicleAverage(r domain.OrderRecord, vehicles domain.VehicleAverages) float64 {
	if v, ok := finite(r.VehicleAvgMinutes); ok {
		return v
	}
	if v, found := vehicles[r.VehicleID]; found && r.VehicleID != "" {
		return v.AvgMinutes
	}
	return DefaultAverageMinutes
}

func datasetStart(records []domain.OrderRecord, lk Lookups) (time.Time, bool) {
	if lk.DatasetStart != nil {
		return *lk.DatasetStart, true
	}
	if len(records) < 2 {
		return time.Time{}, false
	}

	var earliest time.Time
	found := false
	for _, r := range records {
		d, ok := r.Date()
		if !ok {
			continue
		}
		if !found || d.Before(earliest) {
			earliest = d
			found = true
		}
	}
	return earliest, found
}

func valueOr(p *float64, fallback float64) float64 {
	if v, ok := finite(p); ok {
		return v
	}
	return fallback
}

func finite(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
