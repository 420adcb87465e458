package rtsp

import (
	"fmt"
	"strconv"
	"strings"

	gortsplibsdp "github.com/bluenviron/gortsplib/v4/pkg/sdp"
	"github.com/pion/sdp/v3"
)

const attrRTPMap = "rtpmap"

// MediaDescription is the part of an SDP media section discovery cares
// about: the media type ("video", "audio", ...) and its attributes.
type MediaDescription struct {
	Type       string
	Formats    []string
	Attributes []sdp.Attribute
}

// SessionDescription is a parsed SDP document.
type SessionDescription struct {
	Media []MediaDescription
}

// ParseSessionDescription parses an SDP body. The parser accepts the loose
// layouts cameras send: missing o= or t= lines, attributes before t= and
// connection lines after it.
func ParseSessionDescription(body []byte) (*SessionDescription, error) {
	var desc gortsplibsdp.SessionDescription
	if err := desc.Unmarshal(body); err != nil {
		return nil, fmt.Errorf("invalid SDP: %w", err)
	}

	out := &SessionDescription{Media: make([]MediaDescription, 0, len(desc.MediaDescriptions))}
	for _, md := range desc.MediaDescriptions {
		if md == nil {
			continue
		}
		out.Media = append(out.Media, MediaDescription{
			Type:       md.MediaName.Media,
			Formats:    md.MediaName.Formats,
			Attributes: md.Attributes,
		})
	}
	return out, nil
}

// RTPMap is a decoded "a=rtpmap:<pt> <encoding>/<clock>[/<params>]" attribute.
type RTPMap struct {
	PayloadType uint8
	Encoding    string
	ClockRate   uint32
	Parameters  string
}

// ParseRTPMap decodes an rtpmap attribute. Other attributes are rejected.
func ParseRTPMap(attr sdp.Attribute) (RTPMap, error) {
	if attr.Key != attrRTPMap {
		return RTPMap{}, fmt.Errorf("not an rtpmap attribute: %q", attr.Key)
	}

	pt, rest, ok := strings.Cut(strings.TrimSpace(attr.Value), " ")
	if !ok {
		return RTPMap{}, fmt.Errorf("invalid rtpmap %q", attr.Value)
	}
	payloadType, err := strconv.ParseUint(pt, 10, 8)
	if err != nil {
		return RTPMap{}, fmt.Errorf("invalid rtpmap payload type %q", pt)
	}

	parts := strings.SplitN(strings.TrimSpace(rest), "/", 3)
	if parts[0] == "" {
		return RTPMap{}, fmt.Errorf("invalid rtpmap %q: missing encoding", attr.Value)
	}

	m := RTPMap{PayloadType: uint8(payloadType), Encoding: parts[0]}
	if len(parts) > 1 {
		clock, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return RTPMap{}, fmt.Errorf("invalid rtpmap clock rate %q", parts[1])
		}
		m.ClockRate = uint32(clock)
	}
	if len(parts) > 2 {
		m.Parameters = parts[2]
	}
	return m, nil
}

// Encodings returns the rtpmap encoding names of every media section of the
// given type. Malformed rtpmap attributes are skipped.
func (d *SessionDescription) Encodings(mediaType string) []string {
	var encodings []string
	for _, md := range d.Media {
		if md.Type != mediaType {
			continue
		}
		for _, attr := range md.Attributes {
			if attr.Key != attrRTPMap {
				continue
			}
			m, err := ParseRTPMap(attr)
			if err != nil {
				continue
			}
			encodings = append(encodings, m.Encoding)
		}
	}
	return encodings
}
