package catalog

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes within the meta_info column family. Single bytes keep key
// comparisons cheap and preserve numeric ordering for the packed-int suffix.
const (
	prefixApp        = 'A'
	prefixZone       = 'Z'
	prefixServlet    = 'V'
	prefixInstance   = 'D'
	prefixConfig     = 'C'
	prefixPrivilege  = 'P'
	prefixMaxID      = 'M'
	prefixQuarantine = 'Q'
)

const (
	maxIDTagApp     = "app"
	maxIDTagZone    = "zone"
	maxIDTagServlet = "servlet"
	maxIDTagConfig  = "config"
)

func packInt64(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func appKey(appID int64) []byte {
	return append([]byte{prefixApp}, packInt64(appID)...)
}

func zoneKey(zoneID int64) []byte {
	return append([]byte{prefixZone}, packInt64(zoneID)...)
}

func servletKey(servletID int64) []byte {
	return append([]byte{prefixServlet}, packInt64(servletID)...)
}

func instanceKey(address string) []byte {
	return append([]byte{prefixInstance}, []byte(address)...)
}

func privilegeKey(username string) []byte {
	return append([]byte{prefixPrivilege}, []byte(username)...)
}

func configKey(name string, v Version) []byte {
	k := append([]byte{prefixConfig}, []byte(name)...)
	k = append(k, 0)
	return append(k, v.Bytes()...)
}

func configPrefix(name string) []byte {
	k := append([]byte{prefixConfig}, []byte(name)...)
	return append(k, 0)
}

func maxIDKey(tag string) []byte {
	return append([]byte{prefixMaxID}, []byte(tag)...)
}

func quarantineKey(address string) []byte {
	return append([]byte{prefixQuarantine}, []byte(address)...)
}

// appName composes the unique name used for app lookups.
func appName(name string) string { return name }

// zoneCompositeName composes the (app, zone) lookup key per spec.md §3:
// "Key: (app_name, zone_name)".
func zoneCompositeName(app, zone string) string {
	return fmt.Sprintf("%s\x01%s", app, zone)
}

// servletCompositeName composes the (app, zone, servlet) lookup key.
func servletCompositeName(app, zone, servlet string) string {
	return fmt.Sprintf("%s\x01%s\x01%s", app, zone, servlet)
}
