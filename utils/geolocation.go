package utils

import (
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// GeoResolver maps peer endpoints to ISO country codes using a local
// MaxMind database. Lookups are cached per host.
type GeoResolver struct {
	db    *geoip2.Reader
	cache sync.Map // map[string]string
}

// NewGeoResolver always returns a usable resolver. When the database cannot
// be opened the error is returned alongside a resolver that resolves nothing.
func NewGeoResolver(dbPath string) (*GeoResolver, error) {
	if dbPath == "" {
		return &GeoResolver{}, nil
	}

	db, err := geoip2.Open(dbPath)
	if err != nil {
		return &GeoResolver{}, fmt.Errorf("open geoip database %s: %w", dbPath, err)
	}
	return &GeoResolver{db: db}, nil
}

func (g *GeoResolver) Close() {
	if g != nil && g.db != nil {
		g.db.Close()
	}
}

// Enabled reports whether lookups can return anything.
func (g *GeoResolver) Enabled() bool {
	return g != nil && g.db != nil
}

// Country returns the ISO code for an "ip:port" or bare IP endpoint, or ""
// when unknown. Safe to call on a nil resolver.
func (g *GeoResolver) Country(endpoint string) string {
	if !g.Enabled() || endpoint == "" {
		return ""
	}

	host := endpoint
	if h, _, err := net.SplitHostPort(endpoint); err == nil {
		host = h
	}

	if val, ok := g.cache.Load(host); ok {
		return val.(string)
	}

	country := ""
	if ip := net.ParseIP(host); ip != nil {
		record, err := g.db.Country(ip)
		if err == nil {
			country = record.Country.IsoCode
		}
	}

	g.cache.Store(host, country)
	return country
}
