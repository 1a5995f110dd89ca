package parser

import (
	"reflect"
	"testing"
)

func u64(n uint64) *uint64 { return &n }

func TestEncodeDecodeEventRoundTrip(t *testing.T) {
	e := NewEncoder()
	packet := &Packet{
		Type: EVENT,
		Nsp:  "/",
		Data: []any{"ping", map[string]any{"n": float64(1)}},
	}
	texts, bins := e.Encode(packet)
	if len(texts) != 1 || len(bins) != 0 {
		t.Fatalf("expected 1 text frame and 0 binary frames, got %d/%d", len(texts), len(bins))
	}

	d := NewDecoder()
	decoded, err := d.AddText(texts[0])
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if decoded.Type != EVENT || decoded.Nsp != "/" {
		t.Fatalf("unexpected decoded packet: %+v", decoded)
	}
	data, ok := decoded.Data.([]any)
	if !ok || data[0] != "ping" {
		t.Fatalf("unexpected decoded data: %+v", decoded.Data)
	}
}

func TestEncodeDecodeNamespaceAndAckId(t *testing.T) {
	e := NewEncoder()
	packet := &Packet{
		Type: EVENT,
		Nsp:  "/chat",
		Id:   u64(7),
		Data: []any{"msg", "hi"},
	}
	texts, _ := e.Encode(packet)
	if texts[0] != `2/chat,7["msg","hi"]` {
		t.Fatalf("unexpected header: %q", texts[0])
	}

	d := NewDecoder()
	decoded, err := d.AddText(texts[0])
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if decoded.Nsp != "/chat" || decoded.Id == nil || *decoded.Id != 7 {
		t.Fatalf("unexpected decoded packet: %+v", decoded)
	}
}

func TestBinaryEventRoundTrip(t *testing.T) {
	e := NewEncoder()
	packet := &Packet{
		Type: EVENT,
		Nsp:  "/",
		Data: []any{"upload", []byte{1, 2, 3}, []byte{4, 5}},
	}
	texts, bins := e.Encode(packet)
	if len(texts) != 1 || len(bins) != 2 {
		t.Fatalf("expected header + 2 attachments, got %d/%d", len(texts), len(bins))
	}
	if texts[0][0] != byte(BINARY_EVENT) {
		t.Fatalf("expected BINARY_EVENT header, got %q", texts[0])
	}

	d := NewDecoder()
	decoded, err := d.AddText(texts[0])
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if decoded != nil {
		t.Fatalf("expected nil until attachments arrive, got %+v", decoded)
	}
	if !d.Awaiting() {
		t.Fatalf("expected decoder to be awaiting attachments")
	}

	if decoded, err = d.AddBinary(bins[0]); err != nil || decoded != nil {
		t.Fatalf("expected nil after first attachment, got %+v err=%v", decoded, err)
	}
	decoded, err = d.AddBinary(bins[1])
	if err != nil {
		t.Fatalf("decode final attachment: %v", err)
	}
	if d.Awaiting() {
		t.Fatalf("expected decoder to return to AwaitingHeader")
	}

	data, ok := decoded.Data.([]any)
	if !ok || len(data) != 3 {
		t.Fatalf("unexpected reconstructed data: %+v", decoded.Data)
	}
	if !reflect.DeepEqual(data[1], []byte{1, 2, 3}) || !reflect.DeepEqual(data[2], []byte{4, 5}) {
		t.Fatalf("attachments not reconstructed in order: %+v", data)
	}
}

func TestDecoderRejectsTextWhileAwaitingAttachments(t *testing.T) {
	e := NewEncoder()
	texts, _ := e.Encode(&Packet{Type: EVENT, Nsp: "/", Data: []any{"x", []byte{9}}})

	d := NewDecoder()
	if _, err := d.AddText(texts[0]); err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if _, err := d.AddText("2[]"); err == nil {
		t.Fatalf("expected PacketParsingError for text frame mid-reconstruction")
	}
}

func TestPlaceholderIndexOutOfRangeFailsDecoding(t *testing.T) {
	packet := &Packet{
		Type: BINARY_EVENT,
		Data: []any{"x", map[string]any{"_placeholder": true, "num": 5}},
	}
	if _, err := ReconstructPacket(packet, [][]byte{{1}}); err == nil {
		t.Fatalf("expected out-of-range placeholder to fail")
	}
}

func TestInvalidPacketTypeFails(t *testing.T) {
	d := NewDecoder()
	if _, err := d.AddText("9{}"); err == nil {
		t.Fatalf("expected error for unknown packet type")
	}
}
