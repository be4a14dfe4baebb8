package metadata

import "maps"

// Reserved keys set by the relay on every outgoing envelope.
const (
	// KeyTag holds the envelope tag in its 0x%04X form.
	KeyTag = "matchwire_tag"
	// KeyMessage holds the variant name registered for the tag.
	KeyMessage = "matchwire_message"
	// KeyCorrelationID tracks related envelopes across processes.
	KeyCorrelationID = "correlation_id"
)

// Metadata represents the headers carried alongside an envelope. Byte-stream
// peers never see it; it only travels on brokered transports.
type Metadata map[string]string

func (m Metadata) cloneWithExtra(extra int) Metadata {
	cloned := make(Metadata, len(m)+extra)
	maps.Copy(cloned, m)
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// WithAll returns a cloned metadata map containing the supplied entries.
func (m Metadata) WithAll(entries Metadata) Metadata {
	cloned := m.cloneWithExtra(len(entries))
	maps.Copy(cloned, entries)
	return cloned
}

// CorrelationID returns the correlation id, if any.
func (m Metadata) CorrelationID() string {
	return m[KeyCorrelationID]
}

// Reserved reports whether key is set by the relay itself.
func Reserved(key string) bool {
	return key == KeyTag || key == KeyMessage
}

// New constructs a Metadata map from alternating key/value pairs. A trailing
// key without a value is ignored.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}
