package models

// StatusCounts tallies alerts per status.
type StatusCounts struct {
	Green  int `json:"green"`
	Yellow int `json:"yellow"`
	Red    int `json:"red"`
}

func (c *StatusCounts) Add(s AlertStatus) {
	switch s {
	case AlertStatusRed:
		c.Red++
	case AlertStatusYellow:
		c.Yellow++
	default:
		c.Green++
	}
}

// MachineStat is the per-machine alert breakdown.
type MachineStat struct {
	MachineID string       `json:"machine_id"`
	Name      string       `json:"name"`
	Meter     float64      `json:"meter"`
	Unit      MeterUnit    `json:"unit"`
	Alerts    StatusCounts `json:"alerts"`
}

// FleetStat is the dashboard overview across machines and tanks.
type FleetStat struct {
	Machines     int           `json:"machines"`
	Alerts       StatusCounts  `json:"alerts"`
	Tanks        StatusCounts  `json:"tanks"`
	OrphanAlerts int           `json:"orphan_alerts"`
	PerMachine   []MachineStat `json:"per_machine"`
}
