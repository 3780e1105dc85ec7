// Package otel exports taskagent metrics through OpenTelemetry and a
// Prometheus registry, and defines the domain instruments recorded by the
// dispatcher, the model clients and the SSE hub.
package otel

import (
	"context"
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelglobal "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const meterName = "github.com/asad-creats/taskagent"

// Resource identifies the running daemon on every exported series.
type Resource struct {
	ServiceName string // default "taskagent"
	Version     string // default: main module version from build info
	StoreDriver string
	LLMProvider string
}

func (r Resource) attributes() []attribute.KeyValue {
	name := r.ServiceName
	if name == "" {
		name = "taskagent"
	}
	version := r.Version
	if version == "" {
		version = "(devel)"
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
			version = bi.Main.Version
		}
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name), semconv.ServiceVersion(version)}
	if r.StoreDriver != "" {
		attrs = append(attrs, AttrStoreDriver.String(r.StoreDriver))
	}
	if r.LLMProvider != "" {
		attrs = append(attrs, AttrLLMProvider.String(r.LLMProvider))
	}
	return attrs
}

// Provider is the installed meter provider and the /metrics handler that
// serves its registry.
type Provider struct {
	Handler http.Handler
	mp      *sdkmetric.MeterProvider
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.mp == nil {
		return nil
	}
	return p.mp.Shutdown(ctx)
}

// Start installs a global MeterProvider exporting to a private Prometheus
// registry that also carries the Go runtime and process collectors. On error
// the caller serves the plain /metrics fallback instead.
func Start(ctx context.Context, r Resource) (*Provider, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(r.attributes()...))
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otelglobal.SetMeterProvider(mp)
	return &Provider{
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}),
		mp:      mp,
	}, nil
}

// Meter returns the taskagent meter from the global provider.
func Meter() metric.Meter {
	return otelglobal.Meter(meterName)
}

// Attribute keys used by the taskagent instruments.
var (
	AttrAction      = attribute.Key("action")
	AttrSuccess     = attribute.Key("success")
	AttrProvider    = attribute.Key("provider")
	AttrOutcome     = attribute.Key("outcome")
	AttrState       = attribute.Key("state")
	AttrStoreDriver = attribute.Key("taskagent.store.driver")
	AttrLLMProvider = attribute.Key("taskagent.llm.provider")
)
