package data

import "time"

type Tenant struct {
	ID   string
	Name string
}

type Camera struct {
	ID         string
	TenantID   string
	Name       string
	Location   string
	RTSPURL    string // JSON envelope (nonce, ciphertext, tag) of the AES-256-GCM-sealed URL — see internal/crypto
	DEKWrapped string // per-camera DEK, wrapped by the deployment master key
	FPS        int
}

type Point struct {
	X float64
	Y float64
}

const (
	MetricOccupancy = "occupancy"
	MetricDwell     = "dwell"
)

type Zone struct {
	ID                  string
	TenantID            string
	CameraID            string
	Name                string
	Polygon             []Point
	Metrics             []string
	GhostTimeoutMinutes int
}

func (z Zone) HasMetric(m string) bool {
	for _, x := range z.Metrics {
		if x == m {
			return true
		}
	}
	return false
}

const (
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

type ZoneThreshold struct {
	ZoneID    string
	Metric    string
	Level     string
	Threshold float64
}

const (
	EventEnter = "enter"
	EventExit  = "exit"
)

type ZoneEvent struct {
	TenantID     string
	CameraID     string
	ZoneID       string
	TrackID      int
	Event        string
	Ts           time.Time
	DwellSeconds *float64
}

type HourlyMetric struct {
	Ts              time.Time
	ZoneID          string
	AvgOccupancy    float64
	MaxOccupancy    float64
	AvgDwellSeconds *float64
	TotalEntries    int
}

type WeeklyReport struct {
	StartDate          time.Time
	EndDate            time.Time
	LLMSummaryMarkdown string
	Status             string
	GeneratedAt        time.Time
}
