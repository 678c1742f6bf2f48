package models

// RawSample is one historical RRD-style data point as returned by a remote
// metrics endpoint. Field semantics depend on the metric source (node vs
// storage) and some fields have legacy aliases (memused vs mem, memtotal vs
// maxmem), so everything beyond the timestamp is optional.
type RawSample struct {
	Time     int64    `json:"time"`
	CPU      *float64 `json:"cpu,omitempty"`     // node: 0..1 ratio
	MemUsed  *float64 `json:"memused,omitempty"` // node: bytes
	Mem      *float64 `json:"mem,omitempty"`     // node legacy alias for memused
	MemTotal *float64 `json:"memtotal,omitempty"`
	MaxMem   *float64 `json:"maxmem,omitempty"` // node legacy alias for memtotal
	Used     *float64 `json:"used,omitempty"`   // storage: bytes
	Total    *float64 `json:"total,omitempty"`  // storage: bytes
}

// Float returns a pointer suitable for RawSample's optional fields.
func Float(v float64) *float64 { return &v }
