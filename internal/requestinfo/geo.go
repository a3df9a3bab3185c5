package requestinfo

import (
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/cyberitance/backend/internal/cache"
)

// GeoCacheSize bounds the per-instance lookup cache.
const GeoCacheSize = 4096

// Locator resolves client IPs against a GeoLite2-City database.  A nil
// *Locator is valid and never resolves anything.
type Locator struct {
	reader *geoip2.Reader
	city   func(net.IP) (*geoip2.City, error)
	cache  *cache.LRU[string, Geo]
}

// OpenLocator opens the MaxMind database at path.
func OpenLocator(path string) (*Locator, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	l := newLocator(r.City)
	l.reader = r
	return l, nil
}

func newLocator(city func(net.IP) (*geoip2.City, error)) *Locator {
	return &Locator{city: city, cache: cache.New[string, Geo](GeoCacheSize)}
}

// Lookup returns best-effort Geo data for ip.
func (l *Locator) Lookup(ip net.IP) Geo {
	if l == nil || ip == nil {
		return Geo{IP: ip}
	}
	key := ip.String()
	if g, ok := l.cache.Get(key); ok {
		return g
	}

	g := Geo{IP: ip}
	if rec, err := l.city(ip); err == nil && rec != nil {
		g.CountryISO = rec.Country.IsoCode
		g.City = rec.City.Names["en"]
	}
	l.cache.Add(key, g)
	return g
}

// Close releases the database.  Safe on nil.
func (l *Locator) Close() error {
	if l == nil || l.reader == nil {
		return nil
	}
	return l.reader.Close()
}
