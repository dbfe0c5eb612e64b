// ABOUTME: Tests for the tagged-union event decoder.
// ABOUTME: Covers envelope parsing, variant dispatch, unknown-type tolerance, and state snapshot decoding.
package pipeline

import (
	"testing"
	"time"
)

func TestDecodeKnownVariants(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantType string
		check    func(t *testing.T, ev Event)
	}{
		{
			name:     "msg_arrived",
			data:     `{"id":1,"type":"msg_arrived","ts":"2026-09-01T10:00:00Z","sender":"A","content_preview":"hello","channel":"general"}`,
			wantType: "msg_arrived",
			check: func(t *testing.T, ev Event) {
				p, ok := ev.Payload.(MsgArrivedPayload)
				if !ok {
					t.Fatalf("payload type %T", ev.Payload)
				}
				if p.Sender != "A" || p.ContentPreview != "hello" {
					t.Errorf("payload = %+v", p)
				}
			},
		},
		{
			name:     "daemon_result",
			data:     `{"id":2,"type":"daemon_result","classification":"respond","confidence":0.8,"model":"d1","latency_ms":42}`,
			wantType: "daemon_result",
			check: func(t *testing.T, ev Event) {
				p := ev.Payload.(DaemonResultPayload)
				if p.Classification != "respond" || p.Confidence != 0.8 || p.LatencyMs != 42 {
					t.Errorf("payload = %+v", p)
				}
			},
		},
		{
			name:     "should_respond false",
			data:     `{"id":3,"type":"should_respond","decision":false,"reason":"low signal"}`,
			wantType: "should_respond",
			check: func(t *testing.T, ev Event) {
				p := ev.Payload.(ShouldRespondPayload)
				if p.Decision || p.Reason != "low signal" {
					t.Errorf("payload = %+v", p)
				}
			},
		},
		{
			name:     "tool_exec",
			data:     `{"id":4,"type":"tool_exec","tool_name":"search","latency_ms":120,"args_preview":"{q}","result_preview":"ok"}`,
			wantType: "tool_exec",
			check: func(t *testing.T, ev Event) {
				p := ev.Payload.(ToolExecPayload)
				if p.ToolName != "search" || p.LatencyMs != 120 {
					t.Errorf("payload = %+v", p)
				}
			},
		},
		{
			name:     "loop_break",
			data:     `{"id":5,"type":"loop_break","iterations":2,"total_latency_ms":900,"reason":"final_answer","tools_used":["search"]}`,
			wantType: "loop_break",
			check: func(t *testing.T, ev Event) {
				p := ev.Payload.(LoopBreakPayload)
				if p.Iterations != 2 || p.Reason != "final_answer" || len(p.ToolsUsed) != 1 {
					t.Errorf("payload = %+v", p)
				}
			},
		},
		{
			name:     "hard_reset",
			data:     `{"id":6,"type":"hard_reset"}`,
			wantType: "hard_reset",
			check: func(t *testing.T, ev Event) {
				if _, ok := ev.Payload.(HardResetPayload); !ok {
					t.Fatalf("payload type %T", ev.Payload)
				}
			},
		},
		{
			name:     "prompt_daemon_response",
			data:     `{"id":7,"type":"prompt_daemon_response","classification":"context","confidence":0.4,"raw_response":"{}"}`,
			wantType: "prompt_daemon_response",
			check: func(t *testing.T, ev Event) {
				p := ev.Payload.(PromptDaemonResponsePayload)
				if p.Classification != "context" {
					t.Errorf("payload = %+v", p)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.data))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if ev.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", ev.Type, tt.wantType)
			}
			tt.check(t, ev)
		})
	}
}

func TestDecodeEnvelopeFields(t *testing.T) {
	ev, err := Decode([]byte(`{"id":99,"type":"debounce_add","ts":"2026-09-01T10:00:00Z","buffer_size":3}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.ID != 99 {
		t.Errorf("ID = %d, want 99", ev.ID)
	}
	want := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	if !ev.TS.Equal(want) {
		t.Errorf("TS = %v, want %v", ev.TS, want)
	}
}

func TestDecodeUnknownTypeIsTolerated(t *testing.T) {
	ev, err := Decode([]byte(`{"id":8,"type":"quantum_flux","level":11}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p, ok := ev.Payload.(UnknownPayload)
	if !ok {
		t.Fatalf("payload type %T, want UnknownPayload", ev.Payload)
	}
	if p.EventType() != "quantum_flux" {
		t.Errorf("EventType() = %q", p.EventType())
	}
}

func TestDecodeMalformedFails(t *testing.T) {
	if _, err := Decode([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestDecodeState(t *testing.T) {
	ev, err := DecodeState([]byte(`{"buffers":2,"queues":1,"processing":1,"muted_count":0,"brain_enabled":true,"current_model":"ene-large","active_batch":3}`))
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	p, ok := ev.Payload.(StateSnapshotPayload)
	if !ok {
		t.Fatalf("payload type %T", ev.Payload)
	}
	if !p.BrainEnabled || p.CurrentModel != "ene-large" || p.ActiveBatch != 3 {
		t.Errorf("payload = %+v", p)
	}
}
