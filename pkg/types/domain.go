package types

import (
	"fmt"
	"strings"
)

// RecordTypeA is the DNS address record type
const RecordTypeA = "A"

// DomainRecord represents a DNS record in a zone
type DomainRecord struct {
	ID   string `json:"id"`   // Provider-assigned record identifier
	Type string `json:"type"` // A, CNAME, ...
	Name string `json:"name"` // Record label or fully qualified name
	Data string `json:"data"` // Record value (the target IP for A records)
	TTL  int64  `json:"ttl,omitempty"`
}

// RecordID builds the identifier used by providers that address records by
// name, type and value instead of a server-assigned ID
func RecordID(name, recordType, value string) string {
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	return name + "|" + recordType + "|" + value
}

// ParseRecordID splits an identifier built by RecordID
func ParseRecordID(id string) (name, recordType, value string, err error) {
	parts := strings.SplitN(id, "|", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("malformed record id %q", id)
	}
	return parts[0], parts[1], parts[2], nil
}

// QualifyName returns label as a fully qualified, dot-terminated name in zone
func QualifyName(label, zone string) string {
	zone = strings.TrimSuffix(zone, ".")
	if label == "@" || label == zone {
		return zone + "."
	}
	if strings.HasSuffix(label, "."+zone) {
		return label + "."
	}
	return label + "." + zone + "."
}
