package service

import "github.com/ericfialkowski/shortlink/store"

// GeoResolver turns a client IP into coarse location info. Swap in a real
// geo-IP implementation here without touching the service logic.
type GeoResolver interface {
	Resolve(ip string) store.GeoInfo
}

// UnknownResolver is the default resolver: it keeps the IP and reports
// country and city as "Unknown".
type UnknownResolver struct{}

func (UnknownResolver) Resolve(ip string) store.GeoInfo {
	return store.GeoInfo{IP: ip, Country: "Unknown", City: "Unknown"}
}
