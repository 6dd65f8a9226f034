package csvarchive

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriter_WritesHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, []string{"symbol", "price", "size"})
	if err != nil {
		t.Fatalf("new writer failed: %v", err)
	}
	if err := w.WriteRow([]string{"BTCUSDT", "100", "2"}); err != nil {
		t.Fatalf("write row failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %v", lines)
	}
	if lines[0] != "symbol,price,size" || lines[1] != "BTCUSDT,100,2" {
		t.Fatalf("unexpected CSV content: %v", lines)
	}
}
