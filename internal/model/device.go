package model

// DeviceStatus is the liveness of a probed address.
type DeviceStatus string

const (
	DeviceActive      DeviceStatus = "active"
	DeviceUnreachable DeviceStatus = "unreachable"
)

// Device is the result of a single successful probe.
type Device struct {
	IP       string       `json:"ip"`
	Hostname string       `json:"hostname"`
	Status   DeviceStatus `json:"status"`
}

// DiscoveryReport is the outcome of one subnet sweep.
type DiscoveryReport struct {
	Subnet          string   `json:"subnet"`
	TotalHosts      int      `json:"total_hosts"`
	DiscoveredHosts int      `json:"discovered_hosts"`
	Devices         []Device `json:"devices"`
}

// UnresolvedCount returns the number of devices without a hostname.
func (r *DiscoveryReport) UnresolvedCount() int {
	n := 0
	for _, d := range r.Devices {
		if d.Hostname == "" {
			n++
		}
	}
	return n
}
