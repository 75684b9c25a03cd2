package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_WriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.Written.WithLabelValues("pf_ordenes").Add(3)
	r.Failed.WithLabelValues("pf_ordenes", "put").Inc()
	r.ScanPages.Observe(2)
	r.Restored.WithLabelValues("journal", "applied").Add(5)

	if got := testutil.ToFloat64(r.Written.WithLabelValues("pf_ordenes")); got != 3 {
		t.Fatalf("want 3 written, got %v", got)
	}

	path := filepath.Join(t.TempDir(), "shopseed.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(b)
	for _, want := range []string{
		`shopseed_records_written_total{table="pf_ordenes"} 3`,
		`shopseed_records_failed_total{op="put",table="pf_ordenes"} 1`,
		"shopseed_scan_pages_count 1",
		`shopseed_restore_records_total{result="applied",source="journal"} 5`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
