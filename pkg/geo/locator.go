package geo

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/biter777/countries"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oschwald/geoip2-golang"
)

// DefaultCacheSize bounds the number of addresses whose lookup result is kept.
const DefaultCacheSize = 4096

// Location is what the list panel shows next to an event.
type Location struct {
	City        string
	CountryCode string
	Country     string
}

func (l Location) String() string {
	switch {
	case l.City != "" && l.Country != "":
		return l.City + ", " + l.Country
	case l.Country != "":
		return l.Country
	default:
		return l.City
	}
}

// CityReader is the part of a GeoIP2 reader the locator needs.
type CityReader interface {
	City(ip net.IP) (*geoip2.City, error)
}

// Locator resolves IP addresses to places. A nil *Locator is valid and
// resolves nothing, which is how the dashboard runs without a database.
type Locator struct {
	reader CityReader
	closer io.Closer
	cache  *lru.Cache[string, Location]
	logger *slog.Logger
}

// Open loads a GeoLite2/GeoIP2 City database from disk.
func Open(path string, cacheSize int, logger *slog.Logger) (*Locator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database %s: %w", path, err)
	}
	l, err := NewLocator(db, cacheSize, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	l.closer = db
	return l, nil
}

func NewLocator(reader CityReader, cacheSize int, logger *slog.Logger) (*Locator, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, Location](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create geo cache: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Locator{reader: reader, cache: cache, logger: logger}, nil
}

// Lookup returns the location of ip. Misses (unparsable address, no record,
// reader error) are cached as well so a noisy source costs one lookup.
func (l *Locator) Lookup(ip string) (Location, bool) {
	if l == nil || l.reader == nil {
		return Location{}, false
	}
	if loc, ok := l.cache.Get(ip); ok {
		return loc, loc != Location{}
	}

	var loc Location
	if addr := net.ParseIP(strings.TrimSpace(ip)); addr != nil {
		record, err := l.reader.City(addr)
		if err != nil {
			l.logger.Debug("geoip lookup failed", "ip", ip, "error", err)
		} else if record != nil {
			loc = fromRecord(record)
		}
	}
	l.cache.Add(ip, loc)
	return loc, loc != Location{}
}

// Cached reports how many addresses are currently held in the cache.
func (l *Locator) Cached() int {
	if l == nil {
		return 0
	}
	return l.cache.Len()
}

func (l *Locator) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func fromRecord(record *geoip2.City) Location {
	loc := Location{
		City:        record.City.Names["en"],
		CountryCode: record.Country.IsoCode,
	}
	if loc.CountryCode != "" {
		loc.Country = CountryName(loc.CountryCode)
	}
	return loc
}

// CountryName turns an ISO code into a short display name, falling back to
// the code itself when it is unknown.
func CountryName(code string) string {
	name := countries.ByName(code).String()
	if name == "Unknown" || name == "" {
		return strings.ToUpper(code)
	}
	if idx := strings.Index(name, " ("); idx != -1 {
		name = name[:idx]
	}
	return name
}
