// Package metrics emits custom metrics in CloudWatch Embedded Metrics Format
// (EMF): structured JSON on stdout that CloudWatch Logs extracts into metrics
// without API calls or added latency.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Standard CloudWatch metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
)

// Namespace is the CloudWatch namespace all pipeline metrics land in.
const Namespace = "SensorPipeline"

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

// Recorder accumulates dimensions, metrics, and properties for one EMF flush.
// Not safe for concurrent use; create one per operation.
type Recorder struct {
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]float64
	properties map[string]interface{}
}

var (
	functionName string
	initOnce     sync.Once
)

// New creates a Recorder with the FunctionName dimension pre-populated from
// the Lambda environment.
func New() *Recorder {
	initOnce.Do(func() {
		functionName = os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	})
	r := &Recorder{
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]float64),
		properties: make(map[string]interface{}),
	}
	if functionName != "" {
		r.dimensions["FunctionName"] = functionName
	}
	return r
}

// Dimension adds a filterable dimension key-value pair.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named metric value with a CloudWatch unit.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Count records a count metric with value 1.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Property adds a searchable non-metric field to the EMF document.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Flush serializes the EMF document as a single JSON line on stdout. The
// Recorder should not be reused afterwards.
func (r *Recorder) Flush() {
	if len(r.metrics) == 0 {
		return
	}

	defs := make([]metricDef, 0, len(r.metrics))
	for _, m := range r.metrics {
		defs = append(defs, m)
	}
	dimKeys := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dimKeys = append(dimKeys, k)
	}

	doc := map[string]interface{}{
		"_aws": emfDirective{
			Timestamp: time.Now().UnixMilli(),
			CloudWatchMetrics: []cwMetric{{
				Namespace:  Namespace,
				Dimensions: [][]string{dimKeys},
				Metrics:    defs,
			}},
		},
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	for k, v := range r.properties {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emf: failed to marshal metrics: %v\n", err)
		return
	}

	// EMF must be a single line on stdout.
	fmt.Fprintln(os.Stdout, string(data))
}
