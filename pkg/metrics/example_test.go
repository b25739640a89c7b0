package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_basicUsage demonstrates basic metrics configuration.
func Example_basicUsage() {
	// Create a separate registry for this example
	registry := NewRegistry(prometheus.NewRegistry())

	registry.Resolutions.WithLabelValues("jobs", "start_func", "ok").Inc()
	registry.ItemsForwarded.WithLabelValues("jobs").Add(3)

	fmt.Println(testutil.ToFloat64(registry.ItemsForwarded.WithLabelValues("jobs")))

	// Output:
	// 3
}

// Example_customNamespace demonstrates a custom namespace and disabled metrics.
func Example_customNamespace() {
	reg := prometheus.NewRegistry()
	config := Config{
		Enabled:   true,
		Registry:  reg,
		Namespace: "ingest",
	}

	registry := config.Build()
	registry.Terminations.WithLabelValues("jobs", "closed").Inc()

	families, _ := reg.Gather()
	for _, mf := range families {
		fmt.Println(mf.GetName())
	}

	disabled := Config{Enabled: false}
	fmt.Printf("disabled registry is nil: %v\n", disabled.Build() == nil)

	// Output:
	// ingest_wrap_terminations_total
	// disabled registry is nil: true
}
