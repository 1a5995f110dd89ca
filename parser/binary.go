package parser

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DeconstructPacket replaces every []byte in packet.Data with a numbered
// placeholder object and returns the extracted attachments in the order they
// were encountered. packet.Attachments is set to the resulting count.
func DeconstructPacket(packet *Packet) (*Packet, [][]byte) {
	var buffers [][]byte
	packet.Data = deconstruct(packet.Data, &buffers)
	n := uint64(len(buffers))
	packet.Attachments = &n
	return packet, buffers
}

func deconstruct(data any, buffers *[][]byte) any {
	if data == nil {
		return nil
	}
	if b, ok := data.([]byte); ok {
		placeholder := Placeholder{Placeholder: true, Num: len(*buffers)}
		*buffers = append(*buffers, b)
		return placeholder
	}
	switch d := data.(type) {
	case []any:
		out := make([]any, len(d))
		for i, v := range d {
			out[i] = deconstruct(v, buffers)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(d))
		for k, v := range d {
			out[k] = deconstruct(v, buffers)
		}
		return out
	}
	return data
}

// ReconstructPacket splices buffers back into packet.Data at every
// placeholder marker left by DeconstructPacket / produced by decoding.
// It fails if a placeholder index falls outside [0, len(buffers)).
func ReconstructPacket(packet *Packet, buffers [][]byte) (*Packet, error) {
	data, err := reconstruct(packet.Data, buffers)
	if err != nil {
		return nil, err
	}
	packet.Data = data
	packet.Attachments = nil
	return packet, nil
}

func reconstruct(data any, buffers [][]byte) (any, error) {
	if data == nil {
		return nil, nil
	}
	switch d := data.(type) {
	case []any:
		out := make([]any, len(d))
		for i, v := range d {
			rv, err := reconstruct(v, buffers)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	case map[string]any:
		var p Placeholder
		if mapstructure.Decode(d, &p) == nil && p.Placeholder {
			if p.Num < 0 || p.Num >= len(buffers) {
				return nil, fmt.Errorf("parser: placeholder index %d out of range [0, %d)", p.Num, len(buffers))
			}
			return buffers[p.Num], nil
		}
		out := make(map[string]any, len(d))
		for k, v := range d {
			rv, err := reconstruct(v, buffers)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	}
	return data, nil
}
