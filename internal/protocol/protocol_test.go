package protocol

import (
	"encoding/json"
	"testing"
)

func TestSniffType(t *testing.T) {
	typ, err := SniffType([]byte(`{"type":"move","piece_id":"P-1-6-4","to_row":5,"to_col":4}`))
	if err != nil {
		t.Fatalf("sniff: %v", err)
	}
	if typ != "move" {
		t.Errorf("got %q, want move", typ)
	}
}

func TestSniffTypeRejectsBadFrames(t *testing.T) {
	if _, err := SniffType([]byte(`not json`)); err == nil {
		t.Error("malformed JSON should error")
	}
	if _, err := SniffType([]byte(`{"piece_id":"x"}`)); err == nil {
		t.Error("missing type should error")
	}
}

func TestMoveRequestDecodesAfterSniff(t *testing.T) {
	raw := []byte(`{"type":"move","piece_id":"Q-1-7-3","to_row":4,"to_col":3}`)
	typ, err := SniffType(raw)
	if err != nil || typ != "move" {
		t.Fatalf("sniff: %v %q", err, typ)
	}
	var req MoveRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.PieceID != "Q-1-7-3" || req.ToRow != 4 || req.ToCol != 3 {
		t.Errorf("unexpected decode: %+v", req)
	}
}

func TestStateMessageOmitsOptionalClock(t *testing.T) {
	data, err := json.Marshal(StateMessage{Type: "state", Tick: 7})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var asMap map[string]any
	json.Unmarshal(data, &asMap)
	if _, present := asMap["time_since_tick"]; present {
		t.Error("time_since_tick should be omitted when unset")
	}

	ms := int64(12)
	data, _ = json.Marshal(StateMessage{Type: "state", Tick: 7, TimeSinceTick: &ms})
	json.Unmarshal(data, &asMap)
	if v, present := asMap["time_since_tick"]; !present || v.(float64) != 12 {
		t.Errorf("time_since_tick should round trip, got %v", v)
	}
}
