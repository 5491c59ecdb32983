package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func sampleTable() Table {
	return Table{
		Title:   "Devices",
		Headers: []string{"Address", "Search Target"},
		Rows: [][]string{
			{"192.168.1.1:1900", "urn:schemas-upnp-org:device:InternetGatewayDevice:1"},
			{"192.168.1.20:1900", "upnp:rootdevice"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"detailed", FormatDetailed, false},
		{"JSON", FormatJSON, false},
		{"compact", FormatCompact, false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrinter_TableCompact(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, FormatCompact).PrintTable(sampleTable())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[1] != "192.168.1.20:1900\tupnp:rootdevice" {
		t.Errorf("Line = %q", lines[1])
	}
}

func TestPrinter_TableJSON(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, FormatJSON).PrintTable(sampleTable())

	var rows []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, buf.String())
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0]["search_target"] != "urn:schemas-upnp-org:device:InternetGatewayDevice:1" {
		t.Errorf("Row = %v", rows[0])
	}
}

func TestPrinter_TableDetailed(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, FormatDetailed).SetWidth(100).PrintTable(sampleTable())

	out := buf.String()
	for _, want := range []string{"Devices", "Address", "192.168.1.20:1900", "upnp:rootdevice"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

// failingWriter accepts n writes and then fails
type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n == 0 {
		return 0, errors.New("broken pipe")
	}
	w.n--
	return len(p), nil
}

func TestPrinter_WriteErrorIsKept(t *testing.T) {
	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			p := NewPrinter(&failingWriter{}, format)
			if p.Err() != nil {
				t.Fatalf("Err() before writing = %v", p.Err())
			}

			p.PrintTable(sampleTable())
			p.PrintSuccess("done", nil)

			if p.Err() == nil || !strings.Contains(p.Err().Error(), "broken pipe") {
				t.Errorf("Err() = %v, want the write error", p.Err())
			}
		})
	}
}

func TestPrinter_JSONEncodeError(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON)
	p.PrintJSON(map[string]any{"bad": make(chan int)})

	if p.Err() == nil {
		t.Error("Expected an error for a value JSON cannot encode")
	}
}

func TestPrinter_HeaderOnlyInDetailed(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, FormatCompact).PrintHeader("Services", "upnpctl services", nil)
	if buf.Len() != 0 {
		t.Errorf("Compact format should not print headers, got %q", buf.String())
	}

	NewPrinter(&buf, FormatDetailed).PrintHeader("Services", "upnpctl services", map[string]string{"Device": "192.168.1.1"})
	if !strings.Contains(buf.String(), "SERVICES") || !strings.Contains(buf.String(), "192.168.1.1") {
		t.Errorf("Header output = %q", buf.String())
	}
}

func TestPrinter_Error(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, FormatJSON).PrintError("Exec failed", errors.New("boom"), []string{"check the gateway"})

	var obj map[string]any
	if err := json.Unmarshal(buf.Bytes(), &obj); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if obj["status"] != "error" || obj["error"] != "boom" {
		t.Errorf("Output = %v", obj)
	}

	buf.Reset()
	NewPrinter(&buf, FormatDetailed).SetWidth(80).PrintError("Exec failed", errors.New("boom"), []string{"check the gateway"})
	for _, want := range []string{"FAILED", "Exec failed", "boom", "Troubleshooting", "check the gateway"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Output missing %q", want)
		}
	}
}

func TestPrinter_DetailsOrder(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, FormatCompact).PrintDetails("Response", []Detail{
		{"NewExternalIPAddress", "203.0.113.7"},
		{"Another", "x"},
	})

	want := "NewExternalIPAddress\t203.0.113.7\nAnother\tx\n"
	if buf.String() != want {
		t.Errorf("Output = %q, want %q", buf.String(), want)
	}
}

func TestResult_DetailsSorted(t *testing.T) {
	out := NewSuccessResult("Done", map[string]string{"b": "2", "a": "1"}).SetWidth(80).Render()
	if strings.Index(out, "a:") > strings.Index(out, "b:") {
		t.Errorf("Expected details in key order:\n%s", out)
	}
}

func TestJSONKey(t *testing.T) {
	if got := jsonKey(" Control URL "); got != "control_url" {
		t.Errorf("jsonKey() = %q, want control_url", got)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		if got := Confirm(strings.NewReader(tt.input), &out, "Delete mapping", []string{"TCP 8080"}); got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Delete mapping") {
			t.Errorf("Confirm output missing title: %q", out.String())
		}
	}
}

func TestSpinnerModel_QuitsWhenFinished(t *testing.T) {
	finished := make(chan struct{})
	m := newSpinnerModel("Searching", finished)

	if !strings.Contains(m.View(), "Searching") {
		t.Errorf("View() = %q, want the label", m.View())
	}

	next, cmd := m.Update(finishedMsg{})
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if v := next.View(); v != "" {
		t.Errorf("View() after finish = %q, want empty", v)
	}
}

func TestRunWithSpinner_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	called := false
	err := RunWithSpinner(t.Context(), &buf, "Searching", func(ctx context.Context) error {
		called = true
		return errors.New("op failed")
	})

	if !called {
		t.Error("Expected op to run")
	}
	if err == nil || err.Error() != "op failed" {
		t.Errorf("RunWithSpinner() error = %v, want op failed", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected no animation on a non-terminal writer, got %q", buf.String())
	}
}
