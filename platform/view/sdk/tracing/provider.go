/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tracing

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type TracerType string

const (
	None    TracerType = "none"
	Otpl    TracerType = "otpl"
	File    TracerType = "file"
	Console TracerType = "console"

	ServiceName = "obligations"
	// ConfigKey is where the tracing configuration is read from
	ConfigKey = "obligations.tracing"
)

// Config selects where spans are exported. The zero value exports nothing.
type Config struct {
	Provider TracerType `mapstructure:"provider"`
	File     FileConfig `mapstructure:"file"`
	Otpl     OtplConfig `mapstructure:"otpl"`
	// Sampling is the ratio of traces kept, 1 when unset
	Sampling float64 `mapstructure:"sampling"`
}

type FileConfig struct {
	Path string `mapstructure:"path"`
}

type OtplConfig struct {
	Address string `mapstructure:"address"`
}

type ConfigService interface {
	UnmarshalKey(key string, rawVal interface{}) error
}

var logger = logging.MustGetLogger("obligations.tracing")

// NewTracerProvider builds the span exporter configured under ConfigKey
func NewTracerProvider(cs ConfigService) (trace.TracerProvider, error) {
	c := Config{}
	if err := cs.UnmarshalKey(ConfigKey, &c); err != nil {
		return nil, errors.WithMessage(err, "failed reading tracing configuration")
	}
	return NewTracerProviderFromConfig(c)
}

func NewTracerProviderFromConfig(c Config) (trace.TracerProvider, error) {
	logger.Infof("tracing provider [%s]", c.Provider)
	switch c.Provider {
	case "", None:
		return noop.NewTracerProvider(), nil
	case Console:
		return exportTo(os.Stdout, c.Sampling)
	case File:
		if len(c.File.Path) == 0 {
			return nil, errors.New("file tracing requires a path")
		}
		f, err := os.Create(c.File.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed creating [%s]", c.File.Path)
		}
		return exportTo(f, c.Sampling)
	case Otpl:
		if len(c.Otpl.Address) == 0 {
			return nil, errors.New("otpl tracing requires an address")
		}
		client := otlptracegrpc.NewClient(otlptracegrpc.WithInsecure(), otlptracegrpc.WithEndpoint(c.Otpl.Address))
		exporter, err := otlptrace.New(context.Background(), client)
		if err != nil {
			return nil, errors.Wrap(err, "failed creating otlp exporter")
		}
		return newSDKProvider(exporter, c.Sampling)
	default:
		return nil, errors.Errorf("unknown tracing provider [%s]", c.Provider)
	}
}

func exportTo(w io.Writer, sampling float64) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(w))
	if err != nil {
		return nil, errors.Wrap(err, "failed creating stdout exporter")
	}
	return newSDKProvider(exporter, sampling)
}

// newSDKProvider batches spans to exporter and installs the result as the global provider
func newSDKProvider(exporter sdktrace.SpanExporter, sampling float64) (*sdktrace.TracerProvider, error) {
	r, err := resource.New(context.Background(), resource.WithAttributes(semconv.ServiceNameKey.String(ServiceName)))
	if err != nil {
		return nil, errors.WithMessage(err, "failed creating resource")
	}
	if sampling <= 0 {
		sampling = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithExportTimeout(time.Second)),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampling))),
	)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetTracerProvider(tp)
	return tp, nil
}
