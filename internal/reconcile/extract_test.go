package reconcile

import "testing"

func TestExtractCalls(t *testing.T) {
	text := `tool_call call_id: "tc-0001" name: "read_file" arguments: {"path": "main.go"}
some narration in between
invoking id='tc-0002' tool='run_bash' {"command": "go test ./..."}`

	calls := ExtractCalls(text)
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}

	if calls[0].ID != "tc-0001" || calls[0].Name != "read_file" {
		t.Errorf("first call = %+v", calls[0])
	}
	if calls[0].Arguments["path"] != "main.go" {
		t.Errorf("first arguments = %v", calls[0].Arguments)
	}
	if calls[1].ID != "tc-0002" || calls[1].Name != "run_bash" {
		t.Errorf("second call = %+v", calls[1])
	}
	if calls[1].Arguments["command"] != "go test ./..." {
		t.Errorf("second arguments = %v", calls[1].Arguments)
	}
}

func TestExtractCallsNoMarkers(t *testing.T) {
	if calls := ExtractCalls("nothing interesting happened here"); calls != nil {
		t.Errorf("got %v, want nil", calls)
	}
}

func TestExtractCallsPartialRecovery(t *testing.T) {
	// A marker with a name but no id and no JSON: keep what was found.
	calls := ExtractCalls(`calling tool name="write_file" but the log was cut off`)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if calls[0].Name != "write_file" || calls[0].ID != "" {
		t.Errorf("call = %+v", calls[0])
	}
}

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`prefix {"a": 1} suffix`, `{"a": 1}`},
		{`{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{`{"s": "brace } inside"} tail`, `{"s": "brace } inside"}`},
		{`{"s": "escaped \" quote"}`, `{"s": "escaped \" quote"}`},
		{`{"never": "closes"`, ""},
		{`no braces at all`, ""},
	}
	for _, tt := range tests {
		if got := firstJSONObject(tt.in); got != tt.want {
			t.Errorf("firstJSONObject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
