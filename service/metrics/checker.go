package metrics

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	gocl "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// MetricFamiliesChecker searches gathered metrics in tests.
type MetricFamiliesChecker struct {
	families []*gocl.MetricFamily
	t        require.TestingT
}

// NewMetricChecker gathers the registry, failing the test if that is not possible.
func NewMetricChecker(t require.TestingT, reg *prometheus.Registry) *MetricFamiliesChecker {
	families, err := reg.Gather()
	require.NoError(t, err, "must gather metrics")
	return &MetricFamiliesChecker{families: families, t: t}
}

// FindByName returns the single metric family with the given fully qualified name.
func (m *MetricFamiliesChecker) FindByName(name string) *MetricFamilyChecker {
	var found *gocl.MetricFamily
	for _, f := range m.families {
		if f.GetName() != name {
			continue
		}
		require.Nil(m.t, found, "duplicate metric family %q", name)
		found = f
	}
	require.NotNil(m.t, found, "cannot find metric family %q", name)
	return &MetricFamilyChecker{fam: found, t: m.t}
}

// Dump returns the gathered metrics as indented JSON, for debugging.
func (m *MetricFamiliesChecker) Dump() string {
	out, _ := json.MarshalIndent(m.families, "  ", "  ")
	return string(out)
}

type MetricFamilyChecker struct {
	fam *gocl.MetricFamily
	t   require.TestingT
}

// FindByLabels returns the single metric that carries all the given labels.
func (f *MetricFamilyChecker) FindByLabels(labels map[string]string) *gocl.Metric {
	var found *gocl.Metric
	for _, m := range f.fam.Metric {
		if !matchesLabels(m, labels) {
			continue
		}
		require.Nil(f.t, found, "multiple metrics match labels %v", labels)
		found = m
	}
	require.NotNil(f.t, found, "cannot find metric with labels %v", labels)
	return found
}

func matchesLabels(m *gocl.Metric, labels map[string]string) bool {
	for k, v := range labels {
		matched := false
		for _, lab := range m.Label {
			if lab.GetName() == k && lab.GetValue() == v {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
