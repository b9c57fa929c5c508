package metrics

import "time"

type Tags map[string]string

// Client is the metrics interface lifecycle operations report to. A no-op
// implementation is the default, see NewNoopMetricsClient.
type Client interface {
	Counter(name string, tags Tags, value float64)

	Distribution(name string, tags Tags, value float64)

	Timing(name string, tags Tags, duration time.Duration)

	WithTags(tags Tags) Client
}

type noopMetricsClient struct {
}

func NewNoopMetricsClient() Client {
	return &noopMetricsClient{}
}

var _ Client = (*noopMetricsClient)(nil)

func (*noopMetricsClient) Counter(name string, tags Tags, value float64) {
}

func (*noopMetricsClient) Distribution(name string, tags Tags, value float64) {
}

func (*noopMetricsClient) Timing(name string, tags Tags, duration time.Duration) {
}

func (nmc *noopMetricsClient) WithTags(tags Tags) Client {
	return nmc
}
